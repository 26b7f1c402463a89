package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const jobColumns = `id, tenant_id, job_type, queue, payload, status, priority, retry_count, max_retries,
    scheduled_at, started_at, completed_at, failed_at, timeout_seconds, idempotency_key,
    worker_id, error_message, error_details, metadata, created_at, updated_at`

func scanJob(row pgx.Row) (Job, error) {
	var i Job
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.JobType,
		&i.Queue,
		&i.Payload,
		&i.Status,
		&i.Priority,
		&i.RetryCount,
		&i.MaxRetries,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.CompletedAt,
		&i.FailedAt,
		&i.TimeoutSeconds,
		&i.IdempotencyKey,
		&i.WorkerID,
		&i.ErrorMessage,
		&i.ErrorDetails,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const enqueueJob = `-- name: EnqueueJob :one
INSERT INTO jobs (
    tenant_id, job_type, queue, payload, priority, max_retries,
    scheduled_at, timeout_seconds, idempotency_key, metadata
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING ` + jobColumns

type EnqueueJobParams struct {
	TenantID       pgtype.UUID        `json:"tenant_id"`
	JobType        string             `json:"job_type"`
	Queue          string             `json:"queue"`
	Payload        []byte             `json:"payload"`
	Priority       int32              `json:"priority"`
	MaxRetries     int32              `json:"max_retries"`
	ScheduledAt    pgtype.Timestamptz `json:"scheduled_at"`
	TimeoutSeconds int32              `json:"timeout_seconds"`
	IdempotencyKey pgtype.Text        `json:"idempotency_key"`
	Metadata       []byte             `json:"metadata"`
}

// EnqueueJob returns pgx.ErrNoRows when a job with the same idempotency key
// has already been enqueued.
func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	row := q.db.QueryRow(ctx, enqueueJob,
		arg.TenantID,
		arg.JobType,
		arg.Queue,
		arg.Payload,
		arg.Priority,
		arg.MaxRetries,
		arg.ScheduledAt,
		arg.TimeoutSeconds,
		arg.IdempotencyKey,
		arg.Metadata,
	)
	return scanJob(row)
}

const claimNextJob = `-- name: ClaimNextJob :one
UPDATE jobs SET
    status = 'processing',
    started_at = NOW(),
    worker_id = $1,
    updated_at = NOW()
WHERE id = (
    SELECT id FROM jobs
    WHERE status = 'pending'
      AND scheduled_at <= NOW()
      AND ($2::uuid IS NULL OR tenant_id = $2::uuid)
      AND ($3::text = '' OR queue = $3::text)
    ORDER BY priority ASC, scheduled_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + jobColumns

type ClaimNextJobParams struct {
	WorkerID pgtype.Text `json:"worker_id"`
	TenantID pgtype.UUID `json:"tenant_id"`
	Queue    string      `json:"queue"`
}

func (q *Queries) ClaimNextJob(ctx context.Context, arg ClaimNextJobParams) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, claimNextJob, arg.WorkerID, arg.TenantID, arg.Queue))
}

const completeJob = `-- name: CompleteJob :exec
UPDATE jobs SET
    status = 'completed',
    completed_at = NOW(),
    updated_at = NOW()
WHERE id = $1`

func (q *Queries) CompleteJob(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, completeJob, id)
	return err
}

const failJob = `-- name: FailJob :one
UPDATE jobs SET
    retry_count = retry_count + 1,
    status = CASE WHEN retry_count + 1 < max_retries THEN 'pending' ELSE 'failed' END,
    scheduled_at = CASE
        WHEN retry_count + 1 < max_retries THEN NOW() + INTERVAL '30 seconds' * POWER(2, retry_count)
        ELSE scheduled_at
    END,
    failed_at = CASE WHEN retry_count + 1 < max_retries THEN failed_at ELSE NOW() END,
    worker_id = NULL,
    error_message = $2,
    error_details = $3,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + jobColumns

type FailJobParams struct {
	ID           pgtype.UUID `json:"id"`
	ErrorMessage pgtype.Text `json:"error_message"`
	ErrorDetails []byte      `json:"error_details"`
}

// FailJob records a failed attempt. The job is rescheduled with exponential
// backoff until max_retries is reached, then marked failed.
func (q *Queries) FailJob(ctx context.Context, arg FailJobParams) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, failJob, arg.ID, arg.ErrorMessage, arg.ErrorDetails))
}

const deleteFinishedJobs = `-- name: DeleteFinishedJobs :execrows
DELETE FROM jobs
WHERE status IN ('completed', 'failed')
  AND updated_at < $1`

func (q *Queries) DeleteFinishedJobs(ctx context.Context, before pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, deleteFinishedJobs, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
