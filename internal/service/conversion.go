package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/jobs"
	"github.com/dukerupert/bidwell/internal/money"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/telemetry"
)

// InvoiceArchiver stores an immutable copy of each invoice.
// storage.InvoiceArchive implements it.
type InvoiceArchiver interface {
	Put(ctx context.Context, inv *domain.Invoice) (string, error)
}

type conversionService struct {
	repo    repository.Transactor
	archive InvoiceArchiver
	logger  *slog.Logger
}

var _ domain.ConversionService = (*conversionService)(nil)

// NewConversionService creates a new ConversionService. archive may be nil
// to skip archiving.
func NewConversionService(repo repository.Transactor, archive InvoiceArchiver, logger *slog.Logger) domain.ConversionService {
	return &conversionService{
		repo:    repo,
		archive: archive,
		logger:  logger.With("service", "conversion"),
	}
}

// Convert snapshots an accepted or deposit-paid estimate into its invoice.
// The status change and the invoice insert commit together.
func (s *conversionService) Convert(ctx context.Context, estimateID string) (*domain.Invoice, error) {
	const op = "conversion.convert"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	e, err := loadEstimate(ctx, s.repo, op, ownerID, estimateID)
	if err != nil {
		return nil, err
	}

	if e.Status == domain.EstimateInvoiced {
		s.logger.Info("estimate already converted", "estimate_id", e.ID)
		return s.fullInvoice(ctx, op, e)
	}
	if !e.Status.Convertible() {
		return nil, domain.WithOp(domain.ErrInvalidState, op)
	}

	items, err := postgres.EncodeItems(e.Items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode items")
	}

	var paidCents int64
	status := domain.InvoiceSent
	if e.Status == domain.EstimateDepositPaid {
		paidCents = e.DepositCents
		status = domain.InvoicePartiallyPaid
		if paidCents >= e.TotalCents {
			status = domain.InvoicePaid
		}
	}

	var row repository.Invoice
	err = s.repo.ExecTx(ctx, func(q repository.Querier) error {
		// A plan bills the total milestone by milestone; a full invoice on
		// top would charge the client twice.
		if _, err := q.LockEstimate(ctx, postgres.UUID(e.ID)); err != nil {
			return domain.Internal(err, op, "failed to lock estimate")
		}
		n, err := q.CountMilestones(ctx, postgres.UUID(e.ID))
		if err != nil {
			return domain.Internal(err, op, "failed to count milestones")
		}
		if n > 0 {
			return domain.WithOp(domain.ErrPlanBilled, op)
		}

		if _, err := transitionEstimate(ctx, q, s.logger, op, e, domain.EstimateInvoiced); err != nil {
			return err
		}

		row, err = q.CreateInvoice(ctx, repository.CreateInvoiceParams{
			OwnerID:         postgres.UUID(e.OwnerID),
			EstimateID:      postgres.UUID(e.ID),
			InvoiceNumber:   domain.InvoiceNumber(e.EstimateNumber),
			ClientName:      e.Client.Name,
			ClientEmail:     e.Client.Email,
			ClientPhone:     e.Client.Phone,
			Items:           items,
			SubtotalCents:   e.SubtotalCents,
			TaxCents:        e.TaxCents,
			DiscountCents:   e.DiscountCents,
			ShippingCents:   e.ShippingCents,
			TotalCents:      e.TotalCents,
			AmountPaidCents: paidCents,
			Status:          string(status),
		})
		if err != nil {
			if postgres.IsNoRows(err) {
				return domain.WithOp(domain.ErrAlreadyProcessed, op)
			}
			return domain.Internal(err, op, "failed to create invoice")
		}
		return nil
	})
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) && te.From == domain.EstimateInvoiced {
			// Converted concurrently; hand back the winner's invoice.
			s.logger.Info("estimate already converted", "estimate_id", e.ID)
			return s.fullInvoice(ctx, op, e)
		}
		return nil, err
	}

	inv, err := postgres.MapInvoice(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read invoice")
	}

	s.afterCreate(ctx, inv)
	return inv, nil
}

func (s *conversionService) fullInvoice(ctx context.Context, op string, e *domain.Estimate) (*domain.Invoice, error) {
	row, err := s.repo.GetFullInvoiceForEstimate(ctx, postgres.UUID(e.ID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "invoice", domain.InvoiceNumber(e.EstimateNumber))
		}
		return nil, domain.Internal(err, op, "failed to load invoice")
	}

	inv, err := postgres.MapInvoice(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read invoice")
	}
	return inv, nil
}

// ConvertMilestone invoices a single milestone for exactly its amount.
func (s *conversionService) ConvertMilestone(ctx context.Context, milestoneID string) (*domain.Invoice, error) {
	const op = "conversion.convert_milestone"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	m, err := loadMilestone(ctx, s.repo, op, ownerID, milestoneID)
	if err != nil {
		return nil, err
	}

	if inv, err := s.milestoneInvoice(ctx, op, m); err == nil {
		s.logger.Info("milestone already invoiced", "milestone_id", m.ID, "invoice_number", inv.InvoiceNumber)
		return inv, nil
	} else if !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, err
	}

	e, err := loadEstimate(ctx, s.repo, op, ownerID, m.EstimateID.String())
	if err != nil {
		return nil, err
	}
	// An invoiced estimate already has its full invoice.
	switch e.Status {
	case domain.EstimateSent, domain.EstimateAccepted, domain.EstimateDepositPaid:
	default:
		return nil, domain.WithOp(domain.ErrMilestoneNotBilled, op)
	}

	items, err := postgres.EncodeItems(milestoneItems(e, m))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode items")
	}

	var paidCents int64
	status := domain.InvoiceSent
	if m.Status == domain.MilestonePaid {
		paidCents = m.AmountCents
		status = domain.InvoicePaid
	}

	row, err := s.repo.CreateInvoice(ctx, repository.CreateInvoiceParams{
		OwnerID:         postgres.UUID(e.OwnerID),
		EstimateID:      postgres.UUID(e.ID),
		MilestoneNumber: pgtype.Int4{Int32: m.MilestoneNumber, Valid: true},
		InvoiceNumber:   domain.MilestoneInvoiceNumber(e.EstimateNumber, m.MilestoneNumber),
		ClientName:      e.Client.Name,
		ClientEmail:     e.Client.Email,
		ClientPhone:     e.Client.Phone,
		Items:           items,
		SubtotalCents:   m.AmountCents,
		TotalCents:      m.AmountCents,
		AmountPaidCents: paidCents,
		Status:          string(status),
	})
	if err != nil {
		if postgres.IsNoRows(err) {
			s.logger.Info("milestone already invoiced", "milestone_id", m.ID)
			return s.milestoneInvoice(ctx, op, m)
		}
		return nil, domain.Internal(err, op, "failed to create milestone invoice")
	}

	inv, err := postgres.MapInvoice(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read invoice")
	}

	s.afterCreate(ctx, inv)
	return inv, nil
}

func (s *conversionService) milestoneInvoice(ctx context.Context, op string, m *domain.Milestone) (*domain.Invoice, error) {
	row, err := s.repo.GetMilestoneInvoice(ctx, repository.GetMilestoneInvoiceParams{
		EstimateID:      postgres.UUID(m.EstimateID),
		MilestoneNumber: m.MilestoneNumber,
	})
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "invoice", fmt.Sprintf("milestone %d", m.MilestoneNumber))
		}
		return nil, domain.Internal(err, op, "failed to load invoice")
	}

	inv, err := postgres.MapInvoice(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read invoice")
	}
	return inv, nil
}

// milestoneItems lists the estimate's items as zero-quantity reference
// lines followed by the single billable line for the milestone, so the
// item total equals the milestone amount.
func milestoneItems(e *domain.Estimate, m *domain.Milestone) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(e.Items)+1)
	for _, item := range e.Items {
		items = append(items, domain.LineItem{
			Description: fmt.Sprintf("%s — %s", item.Description, m.Description),
			Quantity:    decimal.Zero,
			UnitRate:    item.UnitRate,
		})
	}
	items = append(items, domain.LineItem{
		Description: fmt.Sprintf("Milestone %d: %s (%s%%)", m.MilestoneNumber, m.Description, m.Percentage.StringFixed(2)),
		Quantity:    decimal.NewFromInt(1),
		UnitRate:    money.FromCents(m.AmountCents),
	})
	return items
}

// afterCreate runs the best-effort side effects of a new invoice.
func (s *conversionService) afterCreate(ctx context.Context, inv *domain.Invoice) {
	telemetry.Business.InvoiceCreated(inv.OwnerID.String(), inv.IsMilestoneInvoice())
	s.logger.Info("invoice created",
		"invoice_number", inv.InvoiceNumber,
		"estimate_id", inv.EstimateID,
		"total", money.FormatCents(inv.TotalCents),
		"status", inv.Status,
	)

	if s.archive != nil {
		if key, err := s.archive.Put(ctx, inv); err != nil {
			s.logger.Warn("failed to archive invoice", "invoice_number", inv.InvoiceNumber, "error", err)
		} else {
			s.logger.Debug("invoice archived", "invoice_number", inv.InvoiceNumber, "key", key)
		}
	}

	if _, err := jobs.EnqueueInvoiceCreated(ctx, s.repo, inv); err != nil {
		s.logger.Error("failed to enqueue invoice notification", "invoice_number", inv.InvoiceNumber, "error", err)
	}
}
