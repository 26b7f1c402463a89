package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createNotificationLog = `-- name: CreateNotificationLog :one
INSERT INTO notification_logs (
    correlation_id, owner_id, estimate_id, channel, notification_type,
    recipient, status, error, provider_message_id
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
RETURNING id, correlation_id, owner_id, estimate_id, channel, notification_type,
    recipient, status, error, provider_message_id, created_at`

type CreateNotificationLogParams struct {
	CorrelationID     string      `json:"correlation_id"`
	OwnerID           pgtype.UUID `json:"owner_id"`
	EstimateID        pgtype.UUID `json:"estimate_id"`
	Channel           string      `json:"channel"`
	NotificationType  string      `json:"notification_type"`
	Recipient         string      `json:"recipient"`
	Status            string      `json:"status"`
	Error             pgtype.Text `json:"error"`
	ProviderMessageID pgtype.Text `json:"provider_message_id"`
}

func (q *Queries) CreateNotificationLog(ctx context.Context, arg CreateNotificationLogParams) (NotificationLog, error) {
	row := q.db.QueryRow(ctx, createNotificationLog,
		arg.CorrelationID,
		arg.OwnerID,
		arg.EstimateID,
		arg.Channel,
		arg.NotificationType,
		arg.Recipient,
		arg.Status,
		arg.Error,
		arg.ProviderMessageID,
	)
	var i NotificationLog
	err := row.Scan(
		&i.ID,
		&i.CorrelationID,
		&i.OwnerID,
		&i.EstimateID,
		&i.Channel,
		&i.NotificationType,
		&i.Recipient,
		&i.Status,
		&i.Error,
		&i.ProviderMessageID,
		&i.CreatedAt,
	)
	return i, err
}
