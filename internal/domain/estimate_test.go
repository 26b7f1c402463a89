package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CheckTransition_AllowedTable(t *testing.T) {
	all := []EstimateStatus{
		EstimateDraft, EstimateSent, EstimateAccepted,
		EstimateDepositPaid, EstimateInvoiced, EstimateCancelled,
	}

	allowed := map[[2]EstimateStatus]bool{
		{EstimateDraft, EstimateSent}:           true,
		{EstimateDraft, EstimateCancelled}:      true,
		{EstimateSent, EstimateAccepted}:        true,
		{EstimateSent, EstimateDepositPaid}:     true,
		{EstimateSent, EstimateCancelled}:       true,
		{EstimateAccepted, EstimateInvoiced}:    true,
		{EstimateAccepted, EstimateCancelled}:   true,
		{EstimateDepositPaid, EstimateInvoiced}: true,
		{EstimateDepositPaid, EstimateCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			err := CheckTransition(from, to)
			if allowed[[2]EstimateStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s should be allowed", from, to)
				continue
			}
			var te *TransitionError
			require.ErrorAs(t, err, &te, "%s -> %s should be rejected", from, to)
			assert.Equal(t, from, te.From)
			assert.Equal(t, to, te.To)
		}
	}
}

func Test_CheckTransition_DraftToInvoicedFails(t *testing.T) {
	err := CheckTransition(EstimateDraft, EstimateInvoiced)

	require.Error(t, err)
	assert.True(t, IsTransitionError(err))
	assert.Contains(t, err.Error(), "draft")
	assert.Contains(t, err.Error(), "invoiced")
}

func Test_EstimateStatus_Convertible(t *testing.T) {
	assert.True(t, EstimateAccepted.Convertible())
	assert.True(t, EstimateDepositPaid.Convertible())
	assert.False(t, EstimateSent.Convertible())
	assert.False(t, EstimateDraft.Convertible())
	assert.False(t, EstimateInvoiced.Convertible())
}

func Test_Estimate_IsStale(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	staleAfter := 14 * 24 * time.Hour

	tests := []struct {
		name      string
		status    EstimateStatus
		updatedAt time.Time
		want      bool
	}{
		{"sent and old", EstimateSent, now.AddDate(0, 0, -20), true},
		{"sent and recent", EstimateSent, now.AddDate(0, 0, -3), false},
		{"accepted and old", EstimateAccepted, now.AddDate(0, 0, -30), true},
		{"draft never stale", EstimateDraft, now.AddDate(0, 0, -90), false},
		{"invoiced never stale", EstimateInvoiced, now.AddDate(0, 0, -90), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Estimate{Status: tt.status, UpdatedAt: tt.updatedAt}
			assert.Equal(t, tt.want, e.IsStale(now, staleAfter))
		})
	}
}

func Test_InvoiceNumbers(t *testing.T) {
	assert.Equal(t, "INV-0042", InvoiceNumber(42))
	assert.Equal(t, "INV-0042-M2", MilestoneInvoiceNumber(42, 2))
	assert.Equal(t, "INV-12345-M10", MilestoneInvoiceNumber(12345, 10))
}

func Test_ReminderPreferences_MatchesScheduleDayExactly(t *testing.T) {
	prefs := ReminderPreferences{ScheduleDays: []int32{1, 7, 14}}

	assert.True(t, prefs.MatchesScheduleDay(7))
	assert.False(t, prefs.MatchesScheduleDay(8), "a missed day is not caught up")
	assert.False(t, prefs.MatchesScheduleDay(0))
}

func Test_ReminderPreferences_AIBudgetRemaining(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	current := ReminderPreferences{
		AIMonthlyBudgetCents: 500,
		AIUsageCents:         500,
		AIUsagePeriod:        time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, int64(0), current.AIBudgetRemaining(now))

	lastMonth := current
	lastMonth.AIUsagePeriod = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(500), lastMonth.AIBudgetRemaining(now), "usage resets each month")
}

func Test_DaysOverdue(t *testing.T) {
	due := time.Date(2026, 1, 10, 17, 0, 0, 0, time.UTC)

	assert.Equal(t, int32(0), DaysOverdue(due, time.Date(2026, 1, 10, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(1), DaysOverdue(due, time.Date(2026, 1, 11, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(7), DaysOverdue(due, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(-2), DaysOverdue(due, time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC)))
}
