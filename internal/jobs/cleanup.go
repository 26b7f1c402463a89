package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
)

// Job type constants for cleanup jobs
const (
	JobTypeCleanupFinishedJobs = "cleanup:finished_jobs"
)

// JobRetention is how long completed and failed jobs are kept.
const JobRetention = 30 * 24 * time.Hour

// CleanupPayload represents the payload for a job cleanup run
type CleanupPayload struct {
	Before time.Time `json:"before"`
}

// EnqueueCleanup enqueues a cleanup run for the UTC day containing now.
// It is low priority and not retried; the next day's run catches up.
func EnqueueCleanup(ctx context.Context, q repository.Querier, now time.Time) (bool, error) {
	return enqueue(ctx, q, spec{
		jobType:        JobTypeCleanupFinishedJobs,
		queue:          QueueSchedule,
		payload:        CleanupPayload{Before: now.Add(-JobRetention)},
		priority:       200,
		maxRetries:     1,
		timeoutSeconds: 60,
		key:            "cleanup:" + now.UTC().Format(time.DateOnly),
	})
}

// CleanupResult holds the result of a cleanup operation
type CleanupResult struct {
	JobsDeleted int64 `json:"jobs_deleted"`
}

// ProcessCleanupJob deletes finished jobs older than the payload cutoff.
func ProcessCleanupJob(ctx context.Context, job *repository.Job, q repository.Querier) (*CleanupResult, error) {
	if job.JobType != JobTypeCleanupFinishedJobs {
		return nil, fmt.Errorf("unknown cleanup job type: %s", job.JobType)
	}

	var payload CleanupPayload
	if err := Decode(job, &payload); err != nil {
		return nil, err
	}

	n, err := q.DeleteFinishedJobs(ctx, postgres.Timestamptz(payload.Before))
	if err != nil {
		return nil, fmt.Errorf("failed to delete finished jobs: %w", err)
	}
	return &CleanupResult{JobsDeleted: n}, nil
}

// IsCleanupJob checks if a job type is a cleanup job
func IsCleanupJob(jobType string) bool {
	return jobType == JobTypeCleanupFinishedJobs
}
