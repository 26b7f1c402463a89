package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/jobs"
	"github.com/dukerupert/bidwell/internal/money"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/telemetry"
	"github.com/google/uuid"
)

type estimateService struct {
	repo       repository.Transactor
	staleAfter time.Duration
	logger     *slog.Logger
}

var _ domain.EstimateService = (*estimateService)(nil)

// NewEstimateService creates a new EstimateService instance.
func NewEstimateService(repo repository.Transactor, staleAfter time.Duration, logger *slog.Logger) domain.EstimateService {
	return &estimateService{
		repo:       repo,
		staleAfter: staleAfter,
		logger:     logger.With("service", "estimate"),
	}
}

// CreateEstimate creates a draft with the owner's next estimate number.
func (s *estimateService) CreateEstimate(ctx context.Context, params domain.CreateEstimateParams) (*domain.Estimate, error) {
	const op = "estimate.create"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	deposit := normalizeDeposit(params.Deposit)
	totals, err := money.Calculate(money.Input{
		Items:         params.Items,
		TaxRate:       params.TaxRate,
		DiscountCents: params.DiscountCents,
		ShippingCents: params.ShippingCents,
		Deposit:       deposit,
	})
	if err != nil {
		return nil, err
	}

	items, err := postgres.EncodeItems(params.Items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode items")
	}

	token, err := postgres.GenerateShareToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate share token")
	}

	var row repository.Estimate
	err = s.repo.ExecTx(ctx, func(q repository.Querier) error {
		number, err := q.NextEstimateNumber(ctx, postgres.UUID(ownerID))
		if err != nil {
			if postgres.IsNoRows(err) {
				return domain.NotFound(op, "owner", ownerID.String())
			}
			return domain.Internal(err, op, "failed to allocate estimate number")
		}

		row, err = q.CreateEstimate(ctx, repository.CreateEstimateParams{
			OwnerID:        postgres.UUID(ownerID),
			EstimateNumber: number,
			ClientName:     strings.TrimSpace(params.Client.Name),
			ClientEmail:    strings.TrimSpace(params.Client.Email),
			ClientPhone:    strings.TrimSpace(params.Client.Phone),
			Items:          items,
			TaxRate:        postgres.Numeric(params.TaxRate),
			DiscountCents:  totals.DiscountCents,
			ShippingCents:  totals.ShippingCents,
			SubtotalCents:  totals.SubtotalCents,
			TaxCents:       totals.TaxCents,
			TotalCents:     totals.TotalCents,
			DepositType:    string(deposit.Type),
			DepositValue:   postgres.Numeric(deposit.Value),
			DepositCents:   totals.DepositCents,
			ShareToken:     token,
		})
		if err != nil {
			return domain.Internal(err, op, "failed to create estimate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e, err := postgres.MapEstimate(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read estimate")
	}

	telemetry.Business.EstimateCreated(ownerID.String())
	s.logger.Info("estimate created", "estimate_id", e.ID, "owner_id", ownerID, "number", e.EstimateNumber)
	return e, nil
}

// UpdateDraft replaces the editable content of a draft and recomputes its
// totals and deposit.
func (s *estimateService) UpdateDraft(ctx context.Context, params domain.UpdateEstimateParams) (*domain.Estimate, error) {
	const op = "estimate.update"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	current, err := loadEstimate(ctx, s.repo, op, ownerID, params.EstimateID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.EstimateDraft {
		return nil, domain.WithOp(domain.ErrEstimateLocked, op)
	}

	deposit := normalizeDeposit(params.Deposit)
	totals, err := money.Calculate(money.Input{
		Items:         params.Items,
		TaxRate:       params.TaxRate,
		DiscountCents: params.DiscountCents,
		ShippingCents: params.ShippingCents,
		Deposit:       deposit,
	})
	if err != nil {
		return nil, err
	}

	items, err := postgres.EncodeItems(params.Items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode items")
	}

	var row repository.Estimate
	err = s.repo.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.LockEstimate(ctx, postgres.UUID(current.ID)); err != nil {
			return domain.Internal(err, op, "failed to lock estimate")
		}

		row, err = q.UpdateEstimateDraft(ctx, repository.UpdateEstimateDraftParams{
			ID:            postgres.UUID(current.ID),
			OwnerID:       postgres.UUID(ownerID),
			ClientName:    strings.TrimSpace(params.Client.Name),
			ClientEmail:   strings.TrimSpace(params.Client.Email),
			ClientPhone:   strings.TrimSpace(params.Client.Phone),
			Items:         items,
			TaxRate:       postgres.Numeric(params.TaxRate),
			DiscountCents: totals.DiscountCents,
			ShippingCents: totals.ShippingCents,
			SubtotalCents: totals.SubtotalCents,
			TaxCents:      totals.TaxCents,
			TotalCents:    totals.TotalCents,
			DepositType:   string(deposit.Type),
			DepositValue:  postgres.Numeric(deposit.Value),
			DepositCents:  totals.DepositCents,
		})
		if err != nil {
			if postgres.IsNoRows(err) {
				// Sent between our read and the write.
				return domain.WithOp(domain.ErrEstimateLocked, op)
			}
			return domain.Internal(err, op, "failed to update estimate")
		}

		return resplitPlan(ctx, q, op, row.ID, totals.TotalCents, totals.DepositCents)
	})
	if err != nil {
		return nil, err
	}

	e, err := postgres.MapEstimate(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read estimate")
	}
	return e, nil
}

// resplitPlan keeps an existing milestone plan summing to the new total by
// applying each milestone's stored percentage again.
func resplitPlan(ctx context.Context, q repository.Querier, op string, estimateID pgtype.UUID, totalCents, depositCents int64) error {
	rows, err := q.ListMilestonesByEstimate(ctx, estimateID)
	if err != nil {
		return domain.Internal(err, op, "failed to load milestones")
	}
	if len(rows) == 0 {
		return nil
	}
	if depositCents > 0 {
		return domain.WithOp(domain.ErrPlanWithDeposit, op)
	}

	milestones := postgres.MapMilestones(rows)
	percentages := make([]decimal.Decimal, len(milestones))
	for i, m := range milestones {
		percentages[i] = m.Percentage
	}
	amounts, err := money.SplitByPercentage(totalCents, percentages)
	if err != nil {
		return err
	}
	if err := checkPayable(op, amounts); err != nil {
		return err
	}

	for i, m := range milestones {
		if m.AmountCents == amounts[i] {
			continue
		}
		_, err := q.UpdateMilestoneAmount(ctx, repository.UpdateMilestoneAmountParams{
			ID:          postgres.UUID(m.ID),
			AmountCents: amounts[i],
		})
		if err != nil {
			if postgres.IsNoRows(err) {
				return domain.WithOp(domain.ErrPlanLocked, op)
			}
			return domain.Internal(err, op, "failed to update milestone")
		}
	}
	return nil
}

// GetEstimate returns the estimate with its milestones, ledger and invoices.
func (s *estimateService) GetEstimate(ctx context.Context, estimateID string) (*domain.EstimateDetail, error) {
	const op = "estimate.get"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	e, err := loadEstimate(ctx, s.repo, op, ownerID, estimateID)
	if err != nil {
		return nil, err
	}
	return loadDetail(ctx, s.repo, op, e)
}

// GetByShareToken resolves a client share link.
func (s *estimateService) GetByShareToken(ctx context.Context, token string) (*domain.EstimateDetail, error) {
	const op = "estimate.get_by_token"

	e, err := loadEstimateByToken(ctx, s.repo, op, token)
	if err != nil {
		return nil, err
	}
	// Drafts are not visible to clients until sent.
	if e.Status == domain.EstimateDraft {
		return nil, domain.NotFound(op, "estimate", "share link")
	}
	return loadDetail(ctx, s.repo, op, e)
}

// Send validates the draft, freezes its deposit and notifies the client.
func (s *estimateService) Send(ctx context.Context, estimateID string) (*domain.Estimate, error) {
	const op = "estimate.send"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	current, err := loadEstimate(ctx, s.repo, op, ownerID, estimateID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTransition(current.Status, domain.EstimateSent); err != nil {
		return nil, err
	}
	if err := validateForSend(op, current); err != nil {
		return nil, err
	}

	// deposit_cents was recomputed on every draft mutation and no longer
	// changes once the status leaves draft.
	e, err := transitionEstimate(ctx, s.repo, s.logger, op, current, domain.EstimateSent)
	if err != nil {
		return nil, err
	}

	if _, err := jobs.EnqueueEstimateSent(ctx, s.repo, e.OwnerID, e.ID); err != nil {
		s.logger.Error("failed to enqueue estimate notification", "estimate_id", e.ID, "error", err)
	}
	return e, nil
}

// Accept records client acceptance of an estimate that needs no deposit.
func (s *estimateService) Accept(ctx context.Context, token string) (*domain.Estimate, error) {
	const op = "estimate.accept"

	current, err := loadEstimateByToken(ctx, s.repo, op, token)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.EstimateDraft {
		return nil, domain.NotFound(op, "estimate", "share link")
	}
	if err := domain.CheckTransition(current.Status, domain.EstimateAccepted); err != nil {
		return nil, err
	}
	if current.RequiresDeposit() {
		return nil, domain.NewValidationError(op, "deposit", fmt.Sprintf("%s (%s due)",
			domain.ErrDepositRequired.Message, money.FormatCents(current.DepositCents)))
	}

	return transitionEstimate(ctx, s.repo, s.logger, op, current, domain.EstimateAccepted)
}

// Cancel closes an estimate that has not been invoiced.
func (s *estimateService) Cancel(ctx context.Context, estimateID string) (*domain.Estimate, error) {
	const op = "estimate.cancel"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	current, err := loadEstimate(ctx, s.repo, op, ownerID, estimateID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTransition(current.Status, domain.EstimateCancelled); err != nil {
		return nil, err
	}
	return transitionEstimate(ctx, s.repo, s.logger, op, current, domain.EstimateCancelled)
}

// ConfirmDeposit applies a verified deposit payment. It is safe to call any
// number of times with the same payment.
func (s *estimateService) ConfirmDeposit(ctx context.Context, payment domain.DepositPayment) (*domain.Estimate, error) {
	const op = "estimate.confirm_deposit"

	current, err := loadEstimateByToken(ctx, s.repo, op, payment.ShareToken)
	if err != nil {
		return nil, err
	}

	switch current.Status {
	case domain.EstimateDepositPaid, domain.EstimateInvoiced:
		s.logger.Info("deposit already applied",
			"estimate_id", current.ID,
			"status", current.Status,
			"payment_ref", payment.PaymentRef,
		)
		if current.Status == domain.EstimateDepositPaid {
			s.enqueueConversion(ctx, current)
		}
		return current, nil
	}

	if err := domain.CheckTransition(current.Status, domain.EstimateDepositPaid); err != nil {
		return nil, err
	}
	if !current.RequiresDeposit() || payment.AmountCents != current.DepositCents {
		return nil, domain.NewValidationError(op, "amount", fmt.Sprintf("%s: expected %s, received %s",
			domain.ErrDepositMismatch.Message,
			money.FormatCents(current.DepositCents),
			money.FormatCents(payment.AmountCents)))
	}

	e, err := transitionEstimate(ctx, s.repo, s.logger, op, current, domain.EstimateDepositPaid)
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) && (te.From == domain.EstimateDepositPaid || te.From == domain.EstimateInvoiced) {
			// A concurrent delivery of the same payment won the race.
			s.logger.Info("deposit already applied", "estimate_id", current.ID, "payment_ref", payment.PaymentRef)
			return loadEstimate(ctx, s.repo, op, current.OwnerID, current.ID.String())
		}
		return nil, err
	}

	s.logger.Info("deposit confirmed",
		"estimate_id", e.ID,
		"amount", money.FormatCents(payment.AmountCents),
		"payment_ref", payment.PaymentRef,
	)

	if _, err := jobs.EnqueueDepositReceived(ctx, s.repo, e.OwnerID, e.ID); err != nil {
		s.logger.Error("failed to enqueue deposit notification", "estimate_id", e.ID, "error", err)
	}
	s.enqueueConversion(ctx, e)
	return e, nil
}

func (s *estimateService) enqueueConversion(ctx context.Context, e *domain.Estimate) {
	if _, err := jobs.EnqueueConvertEstimate(ctx, s.repo, e.OwnerID, e.ID); err != nil {
		s.logger.Error("failed to enqueue conversion", "estimate_id", e.ID, "error", err)
	}
}

// ListStale returns the owner's estimates that have waited on the client
// longer than the configured threshold.
func (s *estimateService) ListStale(ctx context.Context, now time.Time) ([]domain.Estimate, error) {
	const op = "estimate.list_stale"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListStaleEstimates(ctx, repository.ListStaleEstimatesParams{
		OwnerID:       postgres.UUID(ownerID),
		UpdatedBefore: postgres.Timestamptz(now.Add(-s.staleAfter)),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list stale estimates")
	}

	out := make([]domain.Estimate, 0, len(rows))
	for _, row := range rows {
		e, err := postgres.MapEstimate(row)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to read estimate")
		}
		out = append(out, *e)
	}
	return out, nil
}

// =============================================================================
// Shared estimate helpers
// =============================================================================

func normalizeDeposit(d domain.DepositSpec) domain.DepositSpec {
	if d.Type == "" {
		d.Type = domain.DepositNone
	}
	return d
}

// validateForSend lists every missing field at once.
func validateForSend(op string, e *domain.Estimate) error {
	fields := map[string]string{}

	if strings.TrimSpace(e.Client.Name) == "" {
		fields["client_name"] = "is required"
	}
	if email := strings.TrimSpace(e.Client.Email); email == "" {
		fields["client_email"] = "is required"
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields["client_email"] = "is not a valid email address"
	}
	if len(e.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	for i, item := range e.Items {
		if strings.TrimSpace(item.Description) == "" {
			fields[fmt.Sprintf("items[%d].description", i)] = "is required"
		}
	}
	if e.DepositCents > 0 && e.DepositCents < domain.MinimumChargeCents {
		fields["deposit"] = fmt.Sprintf("must be at least %s to be payable online", money.FormatCents(domain.MinimumChargeCents))
	}

	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Op: op, Fields: fields}
}

// loadEstimate fetches an owner's estimate. Malformed ids, unknown ids and
// estimates owned by someone else are all NotFound.
func loadEstimate(ctx context.Context, q repository.Querier, op string, ownerID uuid.UUID, estimateID string) (*domain.Estimate, error) {
	id, err := postgres.ParseUUID(estimateID)
	if err != nil {
		return nil, domain.NotFound(op, "estimate", estimateID)
	}

	row, err := q.GetEstimate(ctx, repository.GetEstimateParams{ID: id, OwnerID: postgres.UUID(ownerID)})
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "estimate", estimateID)
		}
		return nil, domain.Internal(err, op, "failed to load estimate")
	}

	e, err := postgres.MapEstimate(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read estimate")
	}
	return e, nil
}

func loadEstimateByToken(ctx context.Context, q repository.Querier, op, token string) (*domain.Estimate, error) {
	if token == "" {
		return nil, domain.NotFound(op, "estimate", "share link")
	}

	row, err := q.GetEstimateByShareToken(ctx, token)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "estimate", "share link")
		}
		return nil, domain.Internal(err, op, "failed to load estimate")
	}

	e, err := postgres.MapEstimate(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read estimate")
	}
	return e, nil
}

func loadDetail(ctx context.Context, q repository.Querier, op string, e *domain.Estimate) (*domain.EstimateDetail, error) {
	milestoneRows, err := q.ListMilestonesByEstimate(ctx, postgres.UUID(e.ID))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load milestones")
	}
	milestones := postgres.MapMilestones(milestoneRows)

	invoiceRows, err := q.ListInvoicesByEstimate(ctx, postgres.UUID(e.ID))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load invoices")
	}
	invoices := make([]domain.Invoice, 0, len(invoiceRows))
	for _, row := range invoiceRows {
		inv, err := postgres.MapInvoice(row)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to read invoice")
		}
		invoices = append(invoices, *inv)
	}

	return &domain.EstimateDetail{
		Estimate:   e,
		Milestones: milestones,
		Ledger:     summarize(milestones),
		Invoices:   invoices,
	}, nil
}

// transitionEstimate moves e to the given status with a compare-and-set on
// its current status. When another writer got there first the estimate is
// re-read and the error names the status it actually holds.
func transitionEstimate(ctx context.Context, q repository.Querier, logger *slog.Logger, op string, e *domain.Estimate, to domain.EstimateStatus) (*domain.Estimate, error) {
	row, err := q.TransitionEstimateStatus(ctx, repository.TransitionEstimateStatusParams{
		ID:         postgres.UUID(e.ID),
		OwnerID:    postgres.UUID(e.OwnerID),
		FromStatus: string(e.Status),
		ToStatus:   string(to),
	})
	if err != nil {
		if !postgres.IsNoRows(err) {
			return nil, domain.Internal(err, op, "failed to update estimate status")
		}
		latest, lerr := loadEstimate(ctx, q, op, e.OwnerID, e.ID.String())
		if lerr != nil {
			return nil, lerr
		}
		return nil, &domain.TransitionError{From: latest.Status, To: to}
	}

	updated, err := postgres.MapEstimate(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read estimate")
	}

	telemetry.Business.EstimateTransitioned(e.OwnerID.String(), string(e.Status), string(to))
	logger.Info("estimate transitioned",
		"estimate_id", e.ID,
		"from", e.Status,
		"to", to,
	)
	return updated, nil
}
