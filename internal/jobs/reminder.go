package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/repository"
)

// Job type constants for scheduled work
const (
	JobTypeSendReminder = "reminder:send"
	JobTypeDaily        = "schedule:daily"
)

// DailyPayload represents the payload for the once-a-day sweep that marks
// overdue milestones and fans out reminders.
type DailyPayload struct {
	Date string `json:"date"` // YYYY-MM-DD, UTC
}

// DailyKey is the idempotency key of the daily sweep for the UTC day of t.
func DailyKey(t time.Time) string {
	return "daily:" + t.UTC().Format(time.DateOnly)
}

// EnqueueDaily enqueues the daily sweep for the UTC day containing now.
// Calling it repeatedly on the same day enqueues one job.
func EnqueueDaily(ctx context.Context, q repository.Querier, now time.Time) (bool, error) {
	return enqueue(ctx, q, spec{
		jobType:        JobTypeDaily,
		queue:          QueueSchedule,
		payload:        DailyPayload{Date: now.UTC().Format(time.DateOnly)},
		priority:       10,
		maxRetries:     3,
		timeoutSeconds: 300,
		scheduledAt:    now,
		key:            DailyKey(now),
	})
}

// ReminderKey is the idempotency key for one reminder, unique per target
// and day offset.
func ReminderKey(due domain.DueReminder) string {
	return fmt.Sprintf("reminder:%s:%s:%d", due.TargetType, due.TargetID, due.DayOffset)
}

// EnqueueSendReminder enqueues dispatch of a due reminder. The reminder log
// still guards against a second send if the job runs twice.
func EnqueueSendReminder(ctx context.Context, q repository.Querier, due domain.DueReminder) (bool, error) {
	return enqueue(ctx, q, spec{
		ownerID:        due.OwnerID,
		jobType:        JobTypeSendReminder,
		queue:          QueueReminder,
		payload:        due,
		priority:       100,
		maxRetries:     1, // a failed dispatch is logged on the reminder, not retried
		timeoutSeconds: 60,
		key:            ReminderKey(due),
	})
}

// OwnerFromJob returns the job's owner, or uuid.Nil for system jobs.
func OwnerFromJob(job *repository.Job) uuid.UUID {
	if !job.TenantID.Valid {
		return uuid.Nil
	}
	return uuid.UUID(job.TenantID.Bytes)
}
