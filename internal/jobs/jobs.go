// Package jobs defines background job types, their payloads and the
// helpers that enqueue them.
//
// Every enqueue carries an idempotency key. Enqueueing a key that already
// exists is a silent no-op, so callers can retry side effects freely.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
)

// Queues
const (
	QueueDefault  = "default"
	QueueNotify   = "notify"
	QueueReminder = "reminder"
	QueueSchedule = "schedule"
)

// spec describes one job to enqueue.
type spec struct {
	ownerID        uuid.UUID // uuid.Nil for system jobs
	jobType        string
	queue          string
	payload        any
	priority       int32
	maxRetries     int32
	timeoutSeconds int32
	scheduledAt    time.Time
	key            string
}

// enqueue inserts the job. It returns false, nil when a job with the same
// idempotency key already exists.
func enqueue(ctx context.Context, q repository.Querier, s spec) (bool, error) {
	payloadJSON, err := json.Marshal(s.payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var tenantID pgtype.UUID
	if s.ownerID != uuid.Nil {
		tenantID = postgres.UUID(s.ownerID)
	}

	scheduledAt := s.scheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		TenantID:       tenantID,
		JobType:        s.jobType,
		Queue:          s.queue,
		Payload:        payloadJSON,
		Priority:       s.priority,
		MaxRetries:     s.maxRetries,
		ScheduledAt:    postgres.Timestamptz(scheduledAt),
		TimeoutSeconds: s.timeoutSeconds,
		IdempotencyKey: postgres.Text(s.key),
		Metadata:       []byte("{}"),
	})
	if err != nil {
		if postgres.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to enqueue %s: %w", s.jobType, err)
	}
	return true, nil
}

// Decode unmarshals a job payload into v.
func Decode(job *repository.Job, v any) error {
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", job.JobType, err)
	}
	return nil
}
