package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const reminderPreferenceColumns = `owner_id, tone, schedule_days, auto_send, max_reminders_per_estimate,
    ai_enabled, ai_monthly_budget_cents, ai_usage_cents, ai_usage_period, created_at, updated_at`

func scanReminderPreference(row pgx.Row) (ReminderPreference, error) {
	var i ReminderPreference
	err := row.Scan(
		&i.OwnerID,
		&i.Tone,
		&i.ScheduleDays,
		&i.AutoSend,
		&i.MaxRemindersPerEstimate,
		&i.AiEnabled,
		&i.AiMonthlyBudgetCents,
		&i.AiUsageCents,
		&i.AiUsagePeriod,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getReminderPreferences = `-- name: GetReminderPreferences :one
SELECT ` + reminderPreferenceColumns + `
FROM reminder_preferences
WHERE owner_id = $1`

func (q *Queries) GetReminderPreferences(ctx context.Context, ownerID pgtype.UUID) (ReminderPreference, error) {
	return scanReminderPreference(q.db.QueryRow(ctx, getReminderPreferences, ownerID))
}

const upsertReminderPreferences = `-- name: UpsertReminderPreferences :one
INSERT INTO reminder_preferences (
    owner_id, tone, schedule_days, auto_send, max_reminders_per_estimate, ai_enabled, ai_monthly_budget_cents
) VALUES (
    $1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (owner_id) DO UPDATE SET
    tone = EXCLUDED.tone,
    schedule_days = EXCLUDED.schedule_days,
    auto_send = EXCLUDED.auto_send,
    max_reminders_per_estimate = EXCLUDED.max_reminders_per_estimate,
    ai_enabled = EXCLUDED.ai_enabled,
    ai_monthly_budget_cents = EXCLUDED.ai_monthly_budget_cents,
    updated_at = NOW()
RETURNING ` + reminderPreferenceColumns

type UpsertReminderPreferencesParams struct {
	OwnerID                 pgtype.UUID `json:"owner_id"`
	Tone                    string      `json:"tone"`
	ScheduleDays            []int32     `json:"schedule_days"`
	AutoSend                bool        `json:"auto_send"`
	MaxRemindersPerEstimate int32       `json:"max_reminders_per_estimate"`
	AiEnabled               bool        `json:"ai_enabled"`
	AiMonthlyBudgetCents    int64       `json:"ai_monthly_budget_cents"`
}

func (q *Queries) UpsertReminderPreferences(ctx context.Context, arg UpsertReminderPreferencesParams) (ReminderPreference, error) {
	row := q.db.QueryRow(ctx, upsertReminderPreferences,
		arg.OwnerID,
		arg.Tone,
		arg.ScheduleDays,
		arg.AutoSend,
		arg.MaxRemindersPerEstimate,
		arg.AiEnabled,
		arg.AiMonthlyBudgetCents,
	)
	return scanReminderPreference(row)
}

const incrementAIUsage = `-- name: IncrementAIUsage :one
UPDATE reminder_preferences SET
    ai_usage_cents = CASE WHEN ai_usage_period = $2 THEN ai_usage_cents + $3 ELSE $3 END,
    ai_usage_period = $2,
    updated_at = NOW()
WHERE owner_id = $1
  AND ai_enabled
  AND (CASE WHEN ai_usage_period = $2 THEN ai_usage_cents ELSE 0 END) < ai_monthly_budget_cents
RETURNING ai_usage_cents`

type IncrementAIUsageParams struct {
	OwnerID   pgtype.UUID `json:"owner_id"`
	Period    pgtype.Date `json:"period"`
	CostCents int64       `json:"cost_cents"`
}

// IncrementAIUsage charges CostCents against the owner's monthly AI budget
// in one statement, resetting usage when Period starts a new month. It
// returns pgx.ErrNoRows when AI is disabled or nothing remains this period.
func (q *Queries) IncrementAIUsage(ctx context.Context, arg IncrementAIUsageParams) (int64, error) {
	row := q.db.QueryRow(ctx, incrementAIUsage, arg.OwnerID, arg.Period, arg.CostCents)
	var usage int64
	err := row.Scan(&usage)
	return usage, err
}

const reminderLogColumns = `id, owner_id, estimate_id, target_type, target_id, day_offset, tone,
    status, personalized, error, created_at, updated_at`

func scanReminderLog(row pgx.Row) (ReminderLog, error) {
	var i ReminderLog
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.EstimateID,
		&i.TargetType,
		&i.TargetID,
		&i.DayOffset,
		&i.Tone,
		&i.Status,
		&i.Personalized,
		&i.Error,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertReminderLog = `-- name: InsertReminderLog :one
INSERT INTO reminder_logs (owner_id, estimate_id, target_type, target_id, day_offset, tone, status)
SELECT $1, $2, $3, $4, $5, $6, 'pending'
WHERE (SELECT COUNT(*) FROM reminder_logs WHERE estimate_id = $2) < $7::integer
ON CONFLICT (target_type, target_id, day_offset) DO NOTHING
RETURNING ` + reminderLogColumns

type InsertReminderLogParams struct {
	OwnerID      pgtype.UUID `json:"owner_id"`
	EstimateID   pgtype.UUID `json:"estimate_id"`
	TargetType   string      `json:"target_type"`
	TargetID     pgtype.UUID `json:"target_id"`
	DayOffset    int32       `json:"day_offset"`
	Tone         string      `json:"tone"`
	MaxReminders int32       `json:"max_reminders"`
}

// InsertReminderLog claims a reminder slot. It returns pgx.ErrNoRows when a
// log for the same target and day already exists or the estimate has
// reached MaxReminders. Callers lock the estimate first so the cap holds
// under concurrent claims.
func (q *Queries) InsertReminderLog(ctx context.Context, arg InsertReminderLogParams) (ReminderLog, error) {
	row := q.db.QueryRow(ctx, insertReminderLog,
		arg.OwnerID,
		arg.EstimateID,
		arg.TargetType,
		arg.TargetID,
		arg.DayOffset,
		arg.Tone,
		arg.MaxReminders,
	)
	return scanReminderLog(row)
}

const updateReminderLogStatus = `-- name: UpdateReminderLogStatus :exec
UPDATE reminder_logs SET
    status = $2,
    personalized = $3,
    error = $4,
    updated_at = NOW()
WHERE id = $1`

type UpdateReminderLogStatusParams struct {
	ID           pgtype.UUID `json:"id"`
	Status       string      `json:"status"`
	Personalized bool        `json:"personalized"`
	Error        pgtype.Text `json:"error"`
}

func (q *Queries) UpdateReminderLogStatus(ctx context.Context, arg UpdateReminderLogStatusParams) error {
	_, err := q.db.Exec(ctx, updateReminderLogStatus, arg.ID, arg.Status, arg.Personalized, arg.Error)
	return err
}

const countReminderLogs = `-- name: CountReminderLogs :one
SELECT COUNT(*) FROM reminder_logs WHERE estimate_id = $1`

func (q *Queries) CountReminderLogs(ctx context.Context, estimateID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countReminderLogs, estimateID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const reminderLogExists = `-- name: ReminderLogExists :one
SELECT EXISTS (
    SELECT 1 FROM reminder_logs
    WHERE target_type = $1 AND target_id = $2 AND day_offset = $3
)`

type ReminderLogExistsParams struct {
	TargetType string      `json:"target_type"`
	TargetID   pgtype.UUID `json:"target_id"`
	DayOffset  int32       `json:"day_offset"`
}

func (q *Queries) ReminderLogExists(ctx context.Context, arg ReminderLogExistsParams) (bool, error) {
	row := q.db.QueryRow(ctx, reminderLogExists, arg.TargetType, arg.TargetID, arg.DayOffset)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}
