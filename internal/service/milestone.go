package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/money"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/telemetry"
	"github.com/google/uuid"
)

type milestoneService struct {
	repo       repository.Transactor
	conversion domain.ConversionService
	now        func() time.Time
	logger     *slog.Logger
}

var _ domain.MilestoneService = (*milestoneService)(nil)

// NewMilestoneService creates a new MilestoneService. Paid milestones are
// invoiced through conversion.
func NewMilestoneService(repo repository.Transactor, conversion domain.ConversionService, logger *slog.Logger) domain.MilestoneService {
	return &milestoneService{
		repo:       repo,
		conversion: conversion,
		now:        time.Now,
		logger:     logger.With("service", "milestone"),
	}
}

// CreatePlan splits the estimate total into ordered milestones.
func (s *milestoneService) CreatePlan(ctx context.Context, estimateID string, stages []domain.PlanStage) ([]domain.Milestone, error) {
	const op = "milestone.create_plan"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	e, err := loadEstimate(ctx, s.repo, op, ownerID, estimateID)
	if err != nil {
		return nil, err
	}

	planDate := s.now()
	var rows []repository.Milestone
	err = s.repo.ExecTx(ctx, func(q repository.Querier) error {
		// Conversion and draft edits take the same lock, so the checks
		// below hold until commit.
		if _, err := q.LockEstimate(ctx, postgres.UUID(e.ID)); err != nil {
			return domain.Internal(err, op, "failed to lock estimate")
		}
		locked, err := loadEstimate(ctx, q, op, ownerID, e.ID.String())
		if err != nil {
			return err
		}
		if locked.Status == domain.EstimateCancelled || locked.Status == domain.EstimateInvoiced {
			return domain.WithOp(domain.ErrPlanNotAllowed, op)
		}
		if locked.RequiresDeposit() {
			return domain.WithOp(domain.ErrPlanWithDeposit, op)
		}
		if locked.TotalCents <= 0 {
			return ErrEmptyTotal
		}

		percentages, amounts, err := planAmounts(op, locked.TotalCents, stages)
		if err != nil {
			return err
		}
		if err := checkPayable(op, amounts); err != nil {
			return err
		}

		n, err := q.CountMilestones(ctx, postgres.UUID(e.ID))
		if err != nil {
			return domain.Internal(err, op, "failed to count milestones")
		}
		if n > 0 {
			return domain.WithOp(domain.ErrPlanExists, op)
		}

		for i, stage := range stages {
			var due pgtype.Date
			if stage.DueInDays != nil {
				due = postgres.Date(planDate.AddDate(0, 0, *stage.DueInDays))
			}

			row, err := q.CreateMilestone(ctx, repository.CreateMilestoneParams{
				OwnerID:         postgres.UUID(ownerID),
				EstimateID:      postgres.UUID(e.ID),
				MilestoneNumber: int32(i + 1),
				Description:     strings.TrimSpace(stage.Description),
				Percentage:      postgres.Numeric(percentages[i]),
				AmountCents:     amounts[i],
				DueDate:         due,
			})
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return domain.WithOp(domain.ErrPlanExists, op)
				}
				return domain.Internal(err, op, "failed to create milestone")
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("milestone plan created", "estimate_id", e.ID, "stages", len(rows))
	return postgres.MapMilestones(rows), nil
}

// planAmounts resolves every stage to a percentage and an amount. Stages
// given as amounts are converted to percentages of the total; the last
// stage absorbs the rounding remainder so the amounts add up to total.
func planAmounts(op string, totalCents int64, stages []domain.PlanStage) ([]decimal.Decimal, []int64, error) {
	if len(stages) == 0 {
		return nil, nil, domain.Invalid(op, "at least one stage is required")
	}

	percentages := make([]decimal.Decimal, len(stages))
	amounts := make([]int64, len(stages))
	total := money.FromCents(totalCents)

	for i, stage := range stages {
		if strings.TrimSpace(stage.Description) == "" {
			return nil, nil, domain.NewValidationError(op, fmt.Sprintf("stages[%d].description", i), ErrStageDescription.Error())
		}
		switch {
		case stage.Percentage != nil && stage.AmountCents == nil:
			percentages[i] = *stage.Percentage
			amounts[i] = money.ToCents(total.Mul(*stage.Percentage).Div(decimal.NewFromInt(100)))
		case stage.AmountCents != nil && stage.Percentage == nil:
			if *stage.AmountCents < 0 {
				return nil, nil, domain.InvalidAmount(op, fmt.Sprintf("stages[%d].amount", i), "must not be negative")
			}
			percentages[i] = money.PercentageOf(*stage.AmountCents, totalCents)
			amounts[i] = *stage.AmountCents
		default:
			return nil, nil, domain.NewValidationError(op, fmt.Sprintf("stages[%d]", i), ErrStageAmountAndPercent.Error())
		}
		if stage.DueInDays != nil && *stage.DueInDays < 0 {
			return nil, nil, domain.NewValidationError(op, fmt.Sprintf("stages[%d].due_in_days", i), "must not be negative")
		}
	}

	if err := money.CheckPercentages(percentages); err != nil {
		return nil, nil, err
	}

	var allocated int64
	for _, a := range amounts[:len(amounts)-1] {
		allocated += a
	}
	last := totalCents - allocated
	if last < 0 {
		return nil, nil, domain.WithOp(domain.ErrPercentageSum, op)
	}
	amounts[len(amounts)-1] = last

	return percentages, amounts, nil
}

// checkPayable rejects amounts the payment gateway could not collect.
func checkPayable(op string, amounts []int64) error {
	for i, a := range amounts {
		if a < domain.MinimumChargeCents {
			return domain.InvalidAmount(op, fmt.Sprintf("stages[%d].amount", i),
				fmt.Sprintf("must be at least %s to be payable online", money.FormatCents(domain.MinimumChargeCents)))
		}
	}
	return nil
}

// MarkPaid is the owner override for recording an offline payment. The
// milestone is then invoiced; marking a paid milestone again changes nothing.
func (s *milestoneService) MarkPaid(ctx context.Context, milestoneID string, paymentRef string) (*domain.Milestone, error) {
	const op = "milestone.mark_paid"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	m, err := loadMilestone(ctx, s.repo, op, ownerID, milestoneID)
	if err != nil {
		return nil, err
	}

	paid, err := s.markPaid(ctx, op, m, paymentRef, "owner")
	if err != nil {
		return nil, err
	}
	s.invoice(ctx, paid)
	return paid, nil
}

// RecordPayment applies a verified milestone.paid webhook.
func (s *milestoneService) RecordPayment(ctx context.Context, payment domain.MilestonePayment) (*domain.Milestone, error) {
	const op = "milestone.record_payment"

	e, err := loadEstimateByToken(ctx, s.repo, op, payment.ShareToken)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.GetMilestoneByNumber(ctx, repository.GetMilestoneByNumberParams{
		EstimateID:      postgres.UUID(e.ID),
		MilestoneNumber: payment.MilestoneNumber,
	})
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "milestone", fmt.Sprintf("%d", payment.MilestoneNumber))
		}
		return nil, domain.Internal(err, op, "failed to load milestone")
	}
	m := postgres.MapMilestone(row)

	ctx = domain.NewContextWithOwner(ctx, &domain.Owner{ID: e.OwnerID})

	if m.Status.Unpaid() && payment.AmountCents != m.AmountCents {
		return nil, domain.NewValidationError(op, "amount", fmt.Sprintf("%s: expected %s, received %s",
			domain.ErrMilestoneAmount.Message,
			money.FormatCents(m.AmountCents),
			money.FormatCents(payment.AmountCents)))
	}

	paid, err := s.markPaid(ctx, op, &m, payment.PaymentRef, "webhook")
	if err != nil {
		return nil, err
	}
	s.invoice(ctx, paid)
	return paid, nil
}

// markPaid flips pending or overdue to paid. A milestone that is already
// paid is returned as it is.
func (s *milestoneService) markPaid(ctx context.Context, op string, m *domain.Milestone, paymentRef, source string) (*domain.Milestone, error) {
	if m.Status == domain.MilestonePaid {
		s.logger.Info("milestone already paid", "milestone_id", m.ID, "payment_ref", paymentRef)
		return m, nil
	}

	row, err := s.repo.MarkMilestonePaid(ctx, repository.MarkMilestonePaidParams{
		ID:         postgres.UUID(m.ID),
		PaymentRef: postgres.Text(paymentRef),
	})
	if err != nil {
		if !postgres.IsNoRows(err) {
			return nil, domain.Internal(err, op, "failed to mark milestone paid")
		}
		// Lost the race to another payment for the same milestone.
		latest, lerr := loadMilestone(ctx, s.repo, op, m.OwnerID, m.ID.String())
		if lerr != nil {
			return nil, lerr
		}
		s.logger.Info("milestone already paid", "milestone_id", m.ID, "payment_ref", paymentRef)
		return latest, nil
	}

	paid := postgres.MapMilestone(row)
	telemetry.Business.MilestonePaid(m.OwnerID.String(), source)
	s.logger.Info("milestone paid",
		"milestone_id", paid.ID,
		"estimate_id", paid.EstimateID,
		"number", paid.MilestoneNumber,
		"amount", money.FormatCents(paid.AmountCents),
		"source", source,
	)
	return &paid, nil
}

// invoice creates the milestone invoice. The payment is already committed,
// so a failure here is logged and left for the owner to retry.
func (s *milestoneService) invoice(ctx context.Context, m *domain.Milestone) {
	if s.conversion == nil {
		return
	}
	if _, err := s.conversion.ConvertMilestone(ctx, m.ID.String()); err != nil {
		s.logger.Warn("failed to invoice paid milestone",
			"milestone_id", m.ID,
			"estimate_id", m.EstimateID,
			"error", err,
		)
	}
}

// CheckOverdue flips every pending milestone due before today to overdue.
func (s *milestoneService) CheckOverdue(ctx context.Context, now time.Time) (int, error) {
	const op = "milestone.check_overdue"

	n, err := s.repo.MarkOverdueMilestones(ctx, postgres.Date(now))
	if err != nil {
		return 0, domain.Internal(err, op, "failed to mark overdue milestones")
	}

	telemetry.Business.MilestonesMarkedOverdue(int(n))
	if n > 0 {
		s.logger.Info("milestones marked overdue", "count", n)
	}
	return int(n), nil
}

// Summary derives paid and pending totals for an estimate.
func (s *milestoneService) Summary(ctx context.Context, estimateID string) (*domain.LedgerSummary, error) {
	const op = "milestone.summary"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	e, err := loadEstimate(ctx, s.repo, op, ownerID, estimateID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListMilestonesByEstimate(ctx, postgres.UUID(e.ID))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load milestones")
	}

	summary := summarize(postgres.MapMilestones(rows))
	return &summary, nil
}

// summarize aggregates milestone rows. Overdue counts as pending.
func summarize(milestones []domain.Milestone) domain.LedgerSummary {
	var sum domain.LedgerSummary
	for _, m := range milestones {
		sum.TotalCents += m.AmountCents
		if m.Status == domain.MilestonePaid {
			sum.TotalPaid += m.AmountCents
		} else {
			sum.TotalPending += m.AmountCents
		}
	}
	sum.PercentagePaid = money.PercentageOf(sum.TotalPaid, sum.TotalCents)
	return sum
}

func loadMilestone(ctx context.Context, q repository.Querier, op string, ownerID uuid.UUID, milestoneID string) (*domain.Milestone, error) {
	id, err := postgres.ParseUUID(milestoneID)
	if err != nil {
		return nil, domain.NotFound(op, "milestone", milestoneID)
	}

	row, err := q.GetMilestone(ctx, repository.GetMilestoneParams{ID: id, OwnerID: postgres.UUID(ownerID)})
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "milestone", milestoneID)
		}
		return nil, domain.Internal(err, op, "failed to load milestone")
	}

	m := postgres.MapMilestone(row)
	return &m, nil
}
