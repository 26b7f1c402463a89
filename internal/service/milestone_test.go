package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/postgres"
)

func tenPercentFree(f *fixture, t *testing.T) *domain.Estimate {
	t.Helper()
	params := thousandDollarJob(domain.DepositSpec{})
	params.TaxRate = dec("0")
	return f.sentEstimate(t, params)
}

func TestMilestoneService_CreatePlan_SplitsByPercentage(t *testing.T) {
	f := newFixture(t)
	e := tenPercentFree(f, t)

	plan, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("30", "40", "30"))

	require.NoError(t, err)
	require.Len(t, plan, 3)
	var sum int64
	for i, m := range plan {
		assert.Equal(t, int32(i+1), m.MilestoneNumber)
		assert.Equal(t, domain.MilestonePending, m.Status)
		sum += m.AmountCents
	}
	assert.Equal(t, int64(30000), plan[0].AmountCents)
	assert.Equal(t, int64(40000), plan[1].AmountCents)
	assert.Equal(t, int64(30000), plan[2].AmountCents)
	assert.Equal(t, e.TotalCents, sum)
}

func TestMilestoneService_CreatePlan_LastStageTakesRemainder(t *testing.T) {
	f := newFixture(t)
	params := thousandDollarJob(domain.DepositSpec{})
	params.TaxRate = dec("0")
	params.Items[0].UnitRate = dec("100")
	e := f.sentEstimate(t, params)

	plan, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("33.33", "33.33", "33.34"))

	require.NoError(t, err)
	assert.Equal(t, int64(3333), plan[0].AmountCents)
	assert.Equal(t, int64(3333), plan[1].AmountCents)
	assert.Equal(t, int64(3334), plan[2].AmountCents)
}

func TestMilestoneService_CreatePlan_MixedAmountsAndPercentages(t *testing.T) {
	f := newFixture(t)
	e := tenPercentFree(f, t)
	deposit := int64(25000)
	rest := dec("75")
	due := 30

	plan, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), []domain.PlanStage{
		{Description: "Materials", AmountCents: &deposit},
		{Description: "Completion", Percentage: &rest, DueInDays: &due},
	})

	require.NoError(t, err)
	assert.True(t, plan[0].Percentage.Equal(dec("25")))
	assert.Equal(t, int64(75000), plan[1].AmountCents)
	assert.Nil(t, plan[0].DueDate)
	require.NotNil(t, plan[1].DueDate)
}

func TestMilestoneService_CreatePlan_Rejects(t *testing.T) {
	amount := int64(1000)
	pct := dec("100")

	tests := []struct {
		name   string
		stages []domain.PlanStage
		check  func(t *testing.T, err error)
	}{
		{
			name:   "percentages short of 100",
			stages: percentStages("30", "30"),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, domain.ErrPercentageSum))
			},
		},
		{
			name:   "both amount and percentage",
			stages: []domain.PlanStage{{Description: "All", Percentage: &pct, AmountCents: &amount}},
			check: func(t *testing.T, err error) {
				assert.Contains(t, domain.GetValidationFields(err), "stages[0]")
			},
		},
		{
			name:   "missing description",
			stages: []domain.PlanStage{{Percentage: &pct}},
			check: func(t *testing.T, err error) {
				assert.Contains(t, domain.GetValidationFields(err), "stages[0].description")
			},
		},
		{
			name:   "stage below minimum charge",
			stages: percentStages("0.01", "99.99"),
			check: func(t *testing.T, err error) {
				assert.Contains(t, domain.GetValidationFields(err), "stages[0].amount")
			},
		},
		{
			name:   "no stages",
			stages: nil,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsCode(err, domain.EINVALID))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := tenPercentFree(f, t)

			_, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), tt.stages)

			require.Error(t, err)
			tt.check(t, err)
			assert.Empty(t, f.store.Milestones())
		})
	}
}

func TestMilestoneService_CreatePlan_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	e := tenPercentFree(f, t)
	_, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("50", "50"))
	require.NoError(t, err)

	_, err = f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("100"))

	assert.True(t, errors.Is(err, domain.ErrPlanExists))
	assert.Len(t, f.store.Milestones(), 2)
}

func TestMilestoneService_CreatePlan_DepositEstimate(t *testing.T) {
	f := newFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))

	_, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("50", "50"))

	assert.True(t, errors.Is(err, domain.ErrPlanWithDeposit))
	assert.Empty(t, f.store.Milestones())
}

func TestMilestoneService_CreatePlan_CancelledEstimate(t *testing.T) {
	f := newFixture(t)
	e := tenPercentFree(f, t)
	_, err := f.estimates.Cancel(f.ctx, e.ID.String())
	require.NoError(t, err)

	_, err = f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("100"))

	assert.True(t, errors.Is(err, domain.ErrPlanNotAllowed))
}

func TestMilestoneService_MarkPaid_Idempotent(t *testing.T) {
	f := newFixture(t)
	e := tenPercentFree(f, t)
	plan, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("30", "40", "30"))
	require.NoError(t, err)

	first, err := f.milestones.MarkPaid(f.ctx, plan[1].ID.String(), "check-1001")
	require.NoError(t, err)
	second, err := f.milestones.MarkPaid(f.ctx, plan[1].ID.String(), "check-1002")
	require.NoError(t, err)

	assert.Equal(t, domain.MilestonePaid, first.Status)
	assert.Equal(t, "check-1001", second.PaymentRef)

	invoices := f.store.Invoices()
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-0001-M2", invoices[0].InvoiceNumber)
	assert.Equal(t, int64(40000), invoices[0].TotalCents)
	assert.Equal(t, "paid", invoices[0].Status)
}

func TestMilestoneService_RecordPayment(t *testing.T) {
	f := newFixture(t)
	e := tenPercentFree(f, t)
	_, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("30", "40", "30"))
	require.NoError(t, err)

	t.Run("wrong amount", func(t *testing.T) {
		_, err := f.milestones.RecordPayment(context.Background(), domain.MilestonePayment{
			ShareToken:      e.ShareToken,
			MilestoneNumber: 2,
			AmountCents:     39999,
		})
		assert.Contains(t, domain.GetValidationFields(err), "amount")
	})

	t.Run("unknown milestone", func(t *testing.T) {
		_, err := f.milestones.RecordPayment(context.Background(), domain.MilestonePayment{
			ShareToken:      e.ShareToken,
			MilestoneNumber: 9,
			AmountCents:     100,
		})
		assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
	})

	t.Run("pays and invoices once", func(t *testing.T) {
		payment := domain.MilestonePayment{
			ShareToken:      e.ShareToken,
			MilestoneNumber: 2,
			AmountCents:     40000,
			PaymentRef:      "pi_m2",
		}
		for i := 0; i < 2; i++ {
			m, err := f.milestones.RecordPayment(context.Background(), payment)
			require.NoError(t, err)
			assert.Equal(t, domain.MilestonePaid, m.Status)
		}
		assert.Len(t, f.store.Invoices(), 1)
	})
}

func TestMilestoneService_CheckOverdue(t *testing.T) {
	f := newFixture(t)
	e := tenPercentFree(f, t)
	soon, later := 5, 60
	half := dec("50")
	plan, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), []domain.PlanStage{
		{Description: "Rough-in", Percentage: &half, DueInDays: &soon},
		{Description: "Finish", Percentage: &half, DueInDays: &later},
	})
	require.NoError(t, err)

	n, err := f.milestones.CheckOverdue(context.Background(), time.Now().AddDate(0, 0, 10))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	ms := f.store.Milestones()
	assert.Equal(t, "overdue", ms[0].Status)
	assert.Equal(t, "pending", ms[1].Status)
	assert.Equal(t, plan[0].ID, postgres.FromUUID(ms[0].ID))
}

func TestMilestoneService_Summary(t *testing.T) {
	f := newFixture(t)
	e := tenPercentFree(f, t)
	plan, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("30", "40", "30"))
	require.NoError(t, err)
	_, err = f.milestones.MarkPaid(f.ctx, plan[0].ID.String(), "cash")
	require.NoError(t, err)

	sum, err := f.milestones.Summary(f.ctx, e.ID.String())

	require.NoError(t, err)
	assert.Equal(t, int64(100000), sum.TotalCents)
	assert.Equal(t, int64(30000), sum.TotalPaid)
	assert.Equal(t, int64(70000), sum.TotalPending)
	assert.True(t, sum.PercentagePaid.Equal(dec("30")))
}
