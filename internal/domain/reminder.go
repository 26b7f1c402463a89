package domain

//go:generate mockgen -source=reminder.go -destination=mock/reminder.go -package=mock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tone selects one of the fixed reminder templates.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneFirm         Tone = "firm"
	ToneProfessional Tone = "professional"
)

// Valid reports whether t is a known tone.
func (t Tone) Valid() bool {
	switch t {
	case ToneFriendly, ToneFirm, ToneProfessional:
		return true
	}
	return false
}

// ReminderTargetType identifies what a reminder is chasing.
type ReminderTargetType string

const (
	TargetMilestone ReminderTargetType = "milestone"
	TargetDeposit   ReminderTargetType = "deposit"
)

// ReminderLogStatus records the dispatch outcome of a reminder.
type ReminderLogStatus string

const (
	ReminderPending ReminderLogStatus = "pending"
	ReminderSent    ReminderLogStatus = "sent"
	ReminderFailed  ReminderLogStatus = "failed"
)

// ReminderPreferences is the per-owner reminder configuration.
type ReminderPreferences struct {
	OwnerID              uuid.UUID
	Tone                 Tone
	ScheduleDays         []int32
	AutoSend             bool
	MaxRemindersPerEst   int32
	AIEnabled            bool
	AIMonthlyBudgetCents int64
	AIUsageCents         int64
	AIUsagePeriod        time.Time
}

// DefaultReminderPreferences is used for owners who never saved preferences.
func DefaultReminderPreferences(ownerID uuid.UUID) ReminderPreferences {
	return ReminderPreferences{
		OwnerID:            ownerID,
		Tone:               ToneFriendly,
		ScheduleDays:       []int32{1, 7, 14, 30},
		AutoSend:           true,
		MaxRemindersPerEst: 3,
	}
}

// AIBudgetRemaining returns the unspent AI budget for the period containing now.
// Usage recorded for an earlier month does not count against the current one.
func (p ReminderPreferences) AIBudgetRemaining(now time.Time) int64 {
	usage := p.AIUsageCents
	if !p.AIUsagePeriod.IsZero() && !BillingPeriod(now).Equal(BillingPeriod(p.AIUsagePeriod)) {
		usage = 0
	}
	return p.AIMonthlyBudgetCents - usage
}

// MatchesScheduleDay reports whether daysOverdue is exactly one of the
// configured offsets. A day missed by the scheduler is not caught up.
func (p ReminderPreferences) MatchesScheduleDay(daysOverdue int32) bool {
	for _, d := range p.ScheduleDays {
		if d == daysOverdue {
			return true
		}
	}
	return false
}

// BillingPeriod returns the first instant of the UTC month containing t.
func BillingPeriod(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DaysOverdue counts whole days between due and now. Negative when not yet due.
func DaysOverdue(due, now time.Time) int32 {
	d := now.UTC().Truncate(24 * time.Hour).Sub(due.UTC().Truncate(24 * time.Hour))
	return int32(d / (24 * time.Hour))
}

// DueReminder is a reminder the scheduler decided should go out today.
type DueReminder struct {
	OwnerID     uuid.UUID          `json:"owner_id"`
	EstimateID  uuid.UUID          `json:"estimate_id"`
	TargetType  ReminderTargetType `json:"target_type"`
	TargetID    uuid.UUID          `json:"target_id"`
	DayOffset   int32              `json:"day_offset"`
	AmountCents int64              `json:"amount_cents"`
	Label       string             `json:"label"`
}

// ReminderMessage is the rendered content of a reminder.
type ReminderMessage struct {
	Subject      string
	HTML         string
	Text         string
	SMS          string
	Tone         Tone
	Personalized bool
}

// ReminderData is interpolated into reminder templates.
type ReminderData struct {
	BusinessName string
	ClientName   string
	Amount       string
	DaysOverdue  int32
	PaymentLink  string
	Label        string
}

// UpdateReminderPreferencesParams is owner input for reminder settings.
type UpdateReminderPreferencesParams struct {
	Tone                 Tone
	ScheduleDays         []int32
	AutoSend             bool
	MaxRemindersPerEst   int32
	AIEnabled            bool
	AIMonthlyBudgetCents int64
}

// ReminderService schedules and sends overdue payment reminders.
type ReminderService interface {
	// DueReminders computes the reminders that should be sent at now.
	DueReminders(ctx context.Context, now time.Time) ([]DueReminder, error)

	// SendReminder renders and dispatches one reminder, logging the outcome.
	SendReminder(ctx context.Context, due DueReminder) error

	// GetPreferences returns the owner's preferences or the defaults.
	GetPreferences(ctx context.Context) (*ReminderPreferences, error)

	// UpdatePreferences stores the owner's preferences.
	UpdatePreferences(ctx context.Context, params UpdateReminderPreferencesParams) (*ReminderPreferences, error)
}
