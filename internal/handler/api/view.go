package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bidwell/internal/domain"
)

// JSON shapes returned by the API. Amounts are integer cents.

type estimateView struct {
	ID             uuid.UUID          `json:"id"`
	EstimateNumber int32              `json:"estimate_number"`
	Status         string             `json:"status"`
	Client         domain.Client      `json:"client"`
	Items          []domain.LineItem  `json:"items"`
	TaxRate        decimal.Decimal    `json:"tax_rate"`
	DiscountCents  int64              `json:"discount_cents"`
	ShippingCents  int64              `json:"shipping_cents"`
	SubtotalCents  int64              `json:"subtotal_cents"`
	TaxCents       int64              `json:"tax_cents"`
	TotalCents     int64              `json:"total_cents"`
	Deposit        domain.DepositSpec `json:"deposit"`
	DepositCents   int64              `json:"deposit_cents"`
	ShareToken     string             `json:"share_token,omitempty"`
	SentAt         *time.Time         `json:"sent_at,omitempty"`
	AcceptedAt     *time.Time         `json:"accepted_at,omitempty"`
	DepositPaidAt  *time.Time         `json:"deposit_paid_at,omitempty"`
	InvoicedAt     *time.Time         `json:"invoiced_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func newEstimateView(e *domain.Estimate) estimateView {
	items := e.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	return estimateView{
		ID:             e.ID,
		EstimateNumber: e.EstimateNumber,
		Status:         string(e.Status),
		Client:         e.Client,
		Items:          items,
		TaxRate:        e.TaxRate,
		DiscountCents:  e.DiscountCents,
		ShippingCents:  e.ShippingCents,
		SubtotalCents:  e.SubtotalCents,
		TaxCents:       e.TaxCents,
		TotalCents:     e.TotalCents,
		Deposit:        e.Deposit,
		DepositCents:   e.DepositCents,
		ShareToken:     e.ShareToken,
		SentAt:         e.SentAt,
		AcceptedAt:     e.AcceptedAt,
		DepositPaidAt:  e.DepositPaidAt,
		InvoicedAt:     e.InvoicedAt,
		CancelledAt:    e.CancelledAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

type milestoneView struct {
	ID              uuid.UUID       `json:"id"`
	EstimateID      uuid.UUID       `json:"estimate_id"`
	MilestoneNumber int32           `json:"milestone_number"`
	Description     string          `json:"description"`
	Percentage      decimal.Decimal `json:"percentage"`
	AmountCents     int64           `json:"amount_cents"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	Status          string          `json:"status"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	PaymentRef      string          `json:"payment_ref,omitempty"`
}

func newMilestoneView(m *domain.Milestone) milestoneView {
	return milestoneView{
		ID:              m.ID,
		EstimateID:      m.EstimateID,
		MilestoneNumber: m.MilestoneNumber,
		Description:     m.Description,
		Percentage:      m.Percentage,
		AmountCents:     m.AmountCents,
		DueDate:         m.DueDate,
		Status:          string(m.Status),
		PaidAt:          m.PaidAt,
		PaymentRef:      m.PaymentRef,
	}
}

func newMilestoneViews(ms []domain.Milestone) []milestoneView {
	out := make([]milestoneView, 0, len(ms))
	for i := range ms {
		out = append(out, newMilestoneView(&ms[i]))
	}
	return out
}

type invoiceView struct {
	ID              uuid.UUID         `json:"id"`
	EstimateID      uuid.UUID         `json:"estimate_id"`
	InvoiceNumber   string            `json:"invoice_number"`
	MilestoneNumber *int32            `json:"milestone_number,omitempty"`
	Client          domain.Client     `json:"client"`
	Items           []domain.LineItem `json:"items"`
	SubtotalCents   int64             `json:"subtotal_cents"`
	TaxCents        int64             `json:"tax_cents"`
	DiscountCents   int64             `json:"discount_cents"`
	ShippingCents   int64             `json:"shipping_cents"`
	TotalCents      int64             `json:"total_cents"`
	AmountPaidCents int64             `json:"amount_paid_cents"`
	BalanceCents    int64             `json:"balance_cents"`
	Status          string            `json:"status"`
	IssuedAt        time.Time         `json:"issued_at"`
}

func newInvoiceView(inv *domain.Invoice) invoiceView {
	return invoiceView{
		ID:              inv.ID,
		EstimateID:      inv.EstimateID,
		InvoiceNumber:   inv.InvoiceNumber,
		MilestoneNumber: inv.MilestoneNumber,
		Client:          inv.Client,
		Items:           inv.Items,
		SubtotalCents:   inv.SubtotalCents,
		TaxCents:        inv.TaxCents,
		DiscountCents:   inv.DiscountCents,
		ShippingCents:   inv.ShippingCents,
		TotalCents:      inv.TotalCents,
		AmountPaidCents: inv.AmountPaidCents,
		BalanceCents:    inv.TotalCents - inv.AmountPaidCents,
		Status:          string(inv.Status),
		IssuedAt:        inv.IssuedAt,
	}
}

type ledgerView struct {
	TotalCents     int64           `json:"total_cents"`
	TotalPaid      int64           `json:"total_paid_cents"`
	TotalPending   int64           `json:"total_pending_cents"`
	PercentagePaid decimal.Decimal `json:"percentage_paid"`
}

func newLedgerView(l domain.LedgerSummary) ledgerView {
	return ledgerView{
		TotalCents:     l.TotalCents,
		TotalPaid:      l.TotalPaid,
		TotalPending:   l.TotalPending,
		PercentagePaid: l.PercentagePaid,
	}
}

type estimateDetailView struct {
	Estimate   estimateView    `json:"estimate"`
	Milestones []milestoneView `json:"milestones"`
	Ledger     ledgerView      `json:"ledger"`
	Invoices   []invoiceView   `json:"invoices"`
}

func newEstimateDetailView(d *domain.EstimateDetail) estimateDetailView {
	invoices := make([]invoiceView, 0, len(d.Invoices))
	for i := range d.Invoices {
		invoices = append(invoices, newInvoiceView(&d.Invoices[i]))
	}
	return estimateDetailView{
		Estimate:   newEstimateView(d.Estimate),
		Milestones: newMilestoneViews(d.Milestones),
		Ledger:     newLedgerView(d.Ledger),
		Invoices:   invoices,
	}
}

// shareView is what a client sees behind a share link. Owner bookkeeping
// (share token, internal timestamps) is left out.
type shareView struct {
	EstimateNumber int32             `json:"estimate_number"`
	Status         string            `json:"status"`
	Client         domain.Client     `json:"client"`
	Items          []domain.LineItem `json:"items"`
	SubtotalCents  int64             `json:"subtotal_cents"`
	TaxCents       int64             `json:"tax_cents"`
	DiscountCents  int64             `json:"discount_cents"`
	ShippingCents  int64             `json:"shipping_cents"`
	TotalCents     int64             `json:"total_cents"`
	DepositCents   int64             `json:"deposit_cents"`
	DepositPaid    bool              `json:"deposit_paid"`
	Milestones     []milestoneView   `json:"milestones"`
	Ledger         ledgerView        `json:"ledger"`
}

func newShareView(d *domain.EstimateDetail) shareView {
	e := d.Estimate
	return shareView{
		EstimateNumber: e.EstimateNumber,
		Status:         string(e.Status),
		Client:         e.Client,
		Items:          e.Items,
		SubtotalCents:  e.SubtotalCents,
		TaxCents:       e.TaxCents,
		DiscountCents:  e.DiscountCents,
		ShippingCents:  e.ShippingCents,
		TotalCents:     e.TotalCents,
		DepositCents:   e.DepositCents,
		DepositPaid:    e.DepositPaidAt != nil,
		Milestones:     newMilestoneViews(d.Milestones),
		Ledger:         newLedgerView(d.Ledger),
	}
}

type preferencesView struct {
	Tone                 string  `json:"tone"`
	ScheduleDays         []int32 `json:"schedule_days"`
	AutoSend             bool    `json:"auto_send"`
	MaxRemindersPerEst   int32   `json:"max_reminders_per_estimate"`
	AIEnabled            bool    `json:"ai_enabled"`
	AIMonthlyBudgetCents int64   `json:"ai_monthly_budget_cents"`
	AIBudgetRemaining    int64   `json:"ai_budget_remaining_cents"`
}

func newPreferencesView(p *domain.ReminderPreferences, now time.Time) preferencesView {
	return preferencesView{
		Tone:                 string(p.Tone),
		ScheduleDays:         p.ScheduleDays,
		AutoSend:             p.AutoSend,
		MaxRemindersPerEst:   p.MaxRemindersPerEst,
		AIEnabled:            p.AIEnabled,
		AIMonthlyBudgetCents: p.AIMonthlyBudgetCents,
		AIBudgetRemaining:    p.AIBudgetRemaining(now),
	}
}
