package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const recordPaymentEvent = `-- name: RecordPaymentEvent :one
INSERT INTO payment_events (provider, event_id, event_type, payload)
VALUES ($1, $2, $3, $4)
ON CONFLICT (provider, event_id) DO UPDATE SET
    attempts = payment_events.attempts + 1,
    updated_at = NOW()
RETURNING id, provider, event_id, event_type, payload, attempts, processed_at, last_error, created_at, updated_at`

type RecordPaymentEventParams struct {
	Provider  string `json:"provider"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Payload   []byte `json:"payload"`
}

// RecordPaymentEvent stores a verified webhook event, or bumps the attempt
// counter of an event already seen. ProcessedAt is set on the returned row
// when an earlier delivery was handled successfully.
func (q *Queries) RecordPaymentEvent(ctx context.Context, arg RecordPaymentEventParams) (PaymentEvent, error) {
	row := q.db.QueryRow(ctx, recordPaymentEvent,
		arg.Provider,
		arg.EventID,
		arg.EventType,
		arg.Payload,
	)
	var i PaymentEvent
	err := row.Scan(
		&i.ID,
		&i.Provider,
		&i.EventID,
		&i.EventType,
		&i.Payload,
		&i.Attempts,
		&i.ProcessedAt,
		&i.LastError,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const markPaymentEventProcessed = `-- name: MarkPaymentEventProcessed :exec
UPDATE payment_events SET
    processed_at = NOW(),
    last_error = NULL,
    updated_at = NOW()
WHERE id = $1`

func (q *Queries) MarkPaymentEventProcessed(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, markPaymentEventProcessed, id)
	return err
}

const markPaymentEventFailed = `-- name: MarkPaymentEventFailed :exec
UPDATE payment_events SET
    last_error = $2,
    updated_at = NOW()
WHERE id = $1`

type MarkPaymentEventFailedParams struct {
	ID        pgtype.UUID `json:"id"`
	LastError pgtype.Text `json:"last_error"`
}

func (q *Queries) MarkPaymentEventFailed(ctx context.Context, arg MarkPaymentEventFailedParams) error {
	_, err := q.db.Exec(ctx, markPaymentEventFailed, arg.ID, arg.LastError)
	return err
}
