package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/repository"
)

// =============================================================================
// MAPPING HELPERS
// =============================================================================

// EncodeItems serializes line items for a JSONB column.
func EncodeItems(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode line items: %w", err)
	}
	return b, nil
}

// DecodeItems parses a JSONB line item column.
func DecodeItems(raw []byte) ([]domain.LineItem, error) {
	items := []domain.LineItem{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode line items: %w", err)
	}
	return items, nil
}

func MapEstimate(e repository.Estimate) (*domain.Estimate, error) {
	items, err := DecodeItems(e.Items)
	if err != nil {
		return nil, err
	}

	return &domain.Estimate{
		ID:             FromUUID(e.ID),
		OwnerID:        FromUUID(e.OwnerID),
		EstimateNumber: e.EstimateNumber,
		Client: domain.Client{
			Name:  e.ClientName,
			Email: e.ClientEmail,
			Phone: e.ClientPhone,
		},
		Items:         items,
		TaxRate:       Decimal(e.TaxRate),
		DiscountCents: e.DiscountCents,
		ShippingCents: e.ShippingCents,
		SubtotalCents: e.SubtotalCents,
		TaxCents:      e.TaxCents,
		TotalCents:    e.TotalCents,
		Deposit: domain.DepositSpec{
			Type:  domain.DepositType(e.DepositType),
			Value: Decimal(e.DepositValue),
		},
		DepositCents:  e.DepositCents,
		Status:        domain.EstimateStatus(e.Status),
		ShareToken:    e.ShareToken,
		SentAt:        TimePtr(e.SentAt),
		AcceptedAt:    TimePtr(e.AcceptedAt),
		DepositPaidAt: TimePtr(e.DepositPaidAt),
		InvoicedAt:    TimePtr(e.InvoicedAt),
		CancelledAt:   TimePtr(e.CancelledAt),
		CreatedAt:     e.CreatedAt.Time,
		UpdatedAt:     e.UpdatedAt.Time,
	}, nil
}

func MapMilestone(m repository.Milestone) domain.Milestone {
	return domain.Milestone{
		ID:              FromUUID(m.ID),
		OwnerID:         FromUUID(m.OwnerID),
		EstimateID:      FromUUID(m.EstimateID),
		MilestoneNumber: m.MilestoneNumber,
		Description:     m.Description,
		Percentage:      Decimal(m.Percentage),
		AmountCents:     m.AmountCents,
		DueDate:         DatePtr(m.DueDate),
		Status:          domain.MilestoneStatus(m.Status),
		PaidAt:          TimePtr(m.PaidAt),
		PaymentRef:      m.PaymentRef.String,
		CreatedAt:       m.CreatedAt.Time,
		UpdatedAt:       m.UpdatedAt.Time,
	}
}

func MapMilestones(rows []repository.Milestone) []domain.Milestone {
	out := make([]domain.Milestone, len(rows))
	for i, m := range rows {
		out[i] = MapMilestone(m)
	}
	return out
}

func MapInvoice(inv repository.Invoice) (*domain.Invoice, error) {
	items, err := DecodeItems(inv.Items)
	if err != nil {
		return nil, err
	}

	var milestoneNumber *int32
	if inv.MilestoneNumber.Valid {
		n := inv.MilestoneNumber.Int32
		milestoneNumber = &n
	}

	return &domain.Invoice{
		ID:              FromUUID(inv.ID),
		OwnerID:         FromUUID(inv.OwnerID),
		EstimateID:      FromUUID(inv.EstimateID),
		MilestoneNumber: milestoneNumber,
		InvoiceNumber:   inv.InvoiceNumber,
		Client: domain.Client{
			Name:  inv.ClientName,
			Email: inv.ClientEmail,
			Phone: inv.ClientPhone,
		},
		Items:           items,
		SubtotalCents:   inv.SubtotalCents,
		TaxCents:        inv.TaxCents,
		DiscountCents:   inv.DiscountCents,
		ShippingCents:   inv.ShippingCents,
		TotalCents:      inv.TotalCents,
		AmountPaidCents: inv.AmountPaidCents,
		Status:          domain.InvoiceStatus(inv.Status),
		IssuedAt:        inv.IssuedAt.Time,
		CreatedAt:       inv.CreatedAt.Time,
	}, nil
}

func MapReminderPreferences(p repository.ReminderPreference) domain.ReminderPreferences {
	return domain.ReminderPreferences{
		OwnerID:              FromUUID(p.OwnerID),
		Tone:                 domain.Tone(p.Tone),
		ScheduleDays:         p.ScheduleDays,
		AutoSend:             p.AutoSend,
		MaxRemindersPerEst:   p.MaxRemindersPerEstimate,
		AIEnabled:            p.AiEnabled,
		AIMonthlyBudgetCents: p.AiMonthlyBudgetCents,
		AIUsageCents:         p.AiUsageCents,
		AIUsagePeriod:        p.AiUsagePeriod.Time,
	}
}

func MapOwner(o repository.Owner) *domain.Owner {
	return &domain.Owner{
		ID:           FromUUID(o.ID),
		BusinessName: o.BusinessName,
		Email:        o.Email,
		Phone:        o.Phone.String,
	}
}
