package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/jobs"
)

func TestEstimateService_CreateEstimate_ComputesTotalsAndDeposit(t *testing.T) {
	f := newFixture(t)

	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))

	assert.Equal(t, domain.EstimateDraft, e.Status)
	assert.Equal(t, int32(1), e.EstimateNumber)
	assert.Equal(t, int64(100000), e.SubtotalCents)
	assert.Equal(t, int64(8000), e.TaxCents)
	assert.Equal(t, int64(108000), e.TotalCents)
	assert.Equal(t, int64(32400), e.DepositCents)
	assert.NotEmpty(t, e.ShareToken)
	assert.Equal(t, e.OwnerID, f.ownerID)
}

func TestEstimateService_CreateEstimate_NumbersIncrease(t *testing.T) {
	f := newFixture(t)

	first := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))
	second := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))

	assert.Equal(t, int32(1), first.EstimateNumber)
	assert.Equal(t, int32(2), second.EstimateNumber)
	assert.NotEqual(t, first.ShareToken, second.ShareToken)
}

func TestEstimateService_CreateEstimate_RequiresOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.estimates.CreateEstimate(context.Background(), thousandDollarJob(domain.DepositSpec{}))

	assert.True(t, domain.IsCode(err, domain.EUNAUTHORIZED))
}

func TestEstimateService_CreateEstimate_NegativeRate(t *testing.T) {
	f := newFixture(t)
	params := thousandDollarJob(domain.DepositSpec{})
	params.Items[0].UnitRate = dec("-5")

	_, err := f.estimates.CreateEstimate(f.ctx, params)

	require.Error(t, err)
	assert.Contains(t, domain.GetValidationFields(err), "items[0].unit_rate")
}

func TestEstimateService_UpdateDraft_RecomputesDeposit(t *testing.T) {
	f := newFixture(t)
	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))

	updated, err := f.estimates.UpdateDraft(f.ctx, domain.UpdateEstimateParams{
		EstimateID: e.ID.String(),
		Client:     e.Client,
		Items:      []domain.LineItem{{Description: "Bathroom", Quantity: dec("2"), UnitRate: dec("250")}},
		TaxRate:    dec("0"),
		Deposit:    domain.DepositSpec{Type: domain.DepositFixed, Value: dec("100")},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(50000), updated.TotalCents)
	assert.Equal(t, int64(10000), updated.DepositCents)
}

func TestEstimateService_UpdateDraft_LockedAfterSend(t *testing.T) {
	f := newFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{}))

	_, err := f.estimates.UpdateDraft(f.ctx, domain.UpdateEstimateParams{
		EstimateID: e.ID.String(),
		Client:     e.Client,
		Items:      e.Items,
	})

	assert.True(t, errors.Is(err, domain.ErrEstimateLocked))
}

func TestEstimateService_UpdateDraft_ResplitsPlan(t *testing.T) {
	f := newFixture(t)
	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))
	_, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("30", "40", "30"))
	require.NoError(t, err)

	updated, err := f.estimates.UpdateDraft(f.ctx, domain.UpdateEstimateParams{
		EstimateID: e.ID.String(),
		Client:     e.Client,
		Items:      []domain.LineItem{{Description: "Kitchen remodel", Quantity: dec("2"), UnitRate: dec("1000")}},
		TaxRate:    dec("8"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(216000), updated.TotalCents)
	ms := f.store.Milestones()
	require.Len(t, ms, 3)
	var sum int64
	for _, m := range ms {
		sum += m.AmountCents
	}
	assert.Equal(t, int64(64800), ms[0].AmountCents)
	assert.Equal(t, int64(86400), ms[1].AmountCents)
	assert.Equal(t, int64(64800), ms[2].AmountCents)
	assert.Equal(t, updated.TotalCents, sum)
}

func TestEstimateService_UpdateDraft_DepositWithPlan(t *testing.T) {
	f := newFixture(t)
	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))
	_, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("50", "50"))
	require.NoError(t, err)

	_, err = f.estimates.UpdateDraft(f.ctx, domain.UpdateEstimateParams{
		EstimateID: e.ID.String(),
		Client:     e.Client,
		Items:      e.Items,
		TaxRate:    dec("8"),
		Deposit:    domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")},
	})

	assert.True(t, errors.Is(err, domain.ErrPlanWithDeposit))
	stored, _ := f.store.Estimate(e.ID)
	assert.Equal(t, int64(0), stored.DepositCents)
	assert.Equal(t, int64(108000), stored.TotalCents)
}

func TestEstimateService_UpdateDraft_PaidMilestoneLocksPlan(t *testing.T) {
	f := newFixture(t)
	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))
	plan, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("50", "50"))
	require.NoError(t, err)
	_, err = f.milestones.MarkPaid(f.ctx, plan[0].ID.String(), "check-2002")
	require.NoError(t, err)

	_, err = f.estimates.UpdateDraft(f.ctx, domain.UpdateEstimateParams{
		EstimateID: e.ID.String(),
		Client:     e.Client,
		Items:      []domain.LineItem{{Description: "Kitchen remodel", Quantity: dec("3"), UnitRate: dec("1000")}},
		TaxRate:    dec("8"),
	})

	assert.True(t, errors.Is(err, domain.ErrPlanLocked))
	stored, _ := f.store.Estimate(e.ID)
	assert.Equal(t, int64(108000), stored.TotalCents)
	ms := f.store.Milestones()
	assert.Equal(t, int64(54000), ms[1].AmountCents)
}

func TestEstimateService_Send_DepositBelowMinimumCharge(t *testing.T) {
	f := newFixture(t)
	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositFixed, Value: dec("0.25")}))

	_, err := f.estimates.Send(f.ctx, e.ID.String())

	require.True(t, domain.IsValidationError(err))
	assert.Contains(t, domain.GetValidationFields(err), "deposit")
	stored, _ := f.store.Estimate(e.ID)
	assert.Equal(t, "draft", stored.Status)
}

func TestEstimateService_Send_ValidatesClientAndItems(t *testing.T) {
	f := newFixture(t)
	e := f.createEstimate(t, domain.CreateEstimateParams{
		Client: domain.Client{Email: "not-an-email"},
	})

	_, err := f.estimates.Send(f.ctx, e.ID.String())

	require.True(t, domain.IsValidationError(err))
	fields := domain.GetValidationFields(err)
	assert.Contains(t, fields, "client_name")
	assert.Contains(t, fields, "client_email")
	assert.Contains(t, fields, "items")

	stored, _ := f.store.Estimate(e.ID)
	assert.Equal(t, "draft", stored.Status)
}

func TestEstimateService_Send_EnqueuesNotification(t *testing.T) {
	f := newFixture(t)

	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))

	assert.Equal(t, domain.EstimateSent, e.Status)
	assert.NotNil(t, e.SentAt)
	assert.Equal(t, int64(32400), e.DepositCents)
	assert.Len(t, f.store.Jobs(jobs.JobTypeNotifyEstimateSent), 1)
}

func TestEstimateService_Send_Twice(t *testing.T) {
	f := newFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{}))

	_, err := f.estimates.Send(f.ctx, e.ID.String())

	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, domain.EstimateSent, te.From)
}

func TestEstimateService_GetByShareToken_HidesDrafts(t *testing.T) {
	f := newFixture(t)
	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))

	_, err := f.estimates.GetByShareToken(context.Background(), e.ShareToken)

	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func TestEstimateService_GetEstimate_OtherOwner(t *testing.T) {
	f := newFixture(t)
	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))

	otherID := f.store.AddOwner("Someone Else", "else@example.com", "")
	otherCtx := domain.NewContextWithOwner(context.Background(), &domain.Owner{ID: otherID})

	_, err := f.estimates.GetEstimate(otherCtx, e.ID.String())

	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func TestEstimateService_Accept(t *testing.T) {
	tests := []struct {
		name       string
		deposit    domain.DepositSpec
		wantStatus domain.EstimateStatus
		wantField  string
	}{
		{name: "no deposit", deposit: domain.DepositSpec{}, wantStatus: domain.EstimateAccepted},
		{name: "deposit required", deposit: domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}, wantField: "deposit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := f.sentEstimate(t, thousandDollarJob(tt.deposit))

			got, err := f.estimates.Accept(context.Background(), e.ShareToken)

			if tt.wantField != "" {
				assert.Contains(t, domain.GetValidationFields(err), tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestEstimateService_Cancel_InvoicedIsFinal(t *testing.T) {
	f := newFixture(t)
	e := f.acceptedEstimate(t)
	_, err := f.conversion.Convert(f.ctx, e.ID.String())
	require.NoError(t, err)

	_, err = f.estimates.Cancel(f.ctx, e.ID.String())

	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, domain.EstimateInvoiced, te.From)
	assert.Equal(t, domain.EstimateCancelled, te.To)
}

func TestEstimateService_ConfirmDeposit_DuplicateIsNoOp(t *testing.T) {
	f := newFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))
	payment := domain.DepositPayment{ShareToken: e.ShareToken, AmountCents: 32400, PaymentRef: "pi_123"}

	first, err := f.estimates.ConfirmDeposit(context.Background(), payment)
	require.NoError(t, err)
	second, err := f.estimates.ConfirmDeposit(context.Background(), payment)
	require.NoError(t, err)

	assert.Equal(t, domain.EstimateDepositPaid, first.Status)
	assert.Equal(t, domain.EstimateDepositPaid, second.Status)
	assert.Equal(t, first.DepositPaidAt, second.DepositPaidAt)
	assert.Len(t, f.store.Jobs(jobs.JobTypeNotifyDepositReceived), 1)
	assert.Len(t, f.store.Jobs(jobs.JobTypeConvertEstimate), 1)
}

func TestEstimateService_ConfirmDeposit_AmountMismatch(t *testing.T) {
	f := newFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))

	_, err := f.estimates.ConfirmDeposit(context.Background(), domain.DepositPayment{
		ShareToken:  e.ShareToken,
		AmountCents: 30000,
	})

	assert.Contains(t, domain.GetValidationFields(err), "amount")
	stored, _ := f.store.Estimate(e.ID)
	assert.Equal(t, "sent", stored.Status)
}

func TestEstimateService_ConfirmDeposit_AfterInvoice(t *testing.T) {
	f := newFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))
	payment := domain.DepositPayment{ShareToken: e.ShareToken, AmountCents: 32400}

	_, err := f.estimates.ConfirmDeposit(context.Background(), payment)
	require.NoError(t, err)
	_, err = f.conversion.Convert(f.ctx, e.ID.String())
	require.NoError(t, err)

	got, err := f.estimates.ConfirmDeposit(context.Background(), payment)

	require.NoError(t, err)
	assert.Equal(t, domain.EstimateInvoiced, got.Status)
	assert.Len(t, f.store.Invoices(), 1)
}

func TestEstimateService_ListStale(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.store.Now = func() time.Time { return base }

	stale := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{}))
	f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))

	f.store.Now = func() time.Time { return base.AddDate(0, 0, 20) }
	fresh := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{}))

	got, err := f.estimates.ListStale(f.ctx, base.AddDate(0, 0, 20))

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
	assert.NotEqual(t, fresh.ID, got[0].ID)
	assert.True(t, got[0].IsStale(base.AddDate(0, 0, 20), 14*24*time.Hour))
}

func TestEstimateService_GetEstimate_IncludesLedger(t *testing.T) {
	f := newFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{}))
	_, err := f.milestones.CreatePlan(f.ctx, e.ID.String(), percentStages("50", "50"))
	require.NoError(t, err)

	detail, err := f.estimates.GetEstimate(f.ctx, e.ID.String())

	require.NoError(t, err)
	assert.Len(t, detail.Milestones, 2)
	assert.Equal(t, int64(108000), detail.Ledger.TotalCents)
	assert.Equal(t, int64(108000), detail.Ledger.TotalPending)
	assert.Equal(t, e.ID, detail.Estimate.ID)
}
