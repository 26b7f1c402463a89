package domain

//go:generate mockgen -source=milestone.go -destination=mock/milestone.go -package=mock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MilestoneStatus is the payment state of a milestone.
type MilestoneStatus string

const (
	MilestonePending MilestoneStatus = "pending"
	MilestonePaid    MilestoneStatus = "paid"
	MilestoneOverdue MilestoneStatus = "overdue"
)

// Unpaid reports whether money is still owed on the milestone.
func (s MilestoneStatus) Unpaid() bool {
	return s == MilestonePending || s == MilestoneOverdue
}

// Milestone is one stage of a payment plan.
type Milestone struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	EstimateID      uuid.UUID
	MilestoneNumber int32
	Description     string
	Percentage      decimal.Decimal
	AmountCents     int64
	DueDate         *time.Time
	Status          MilestoneStatus
	PaidAt          *time.Time
	PaymentRef      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PlanStage describes one stage of a new plan. Exactly one of Percentage
// or AmountCents is set.
type PlanStage struct {
	Description string
	Percentage  *decimal.Decimal
	AmountCents *int64
	// DueInDays is the offset from plan creation; nil means no due date.
	DueInDays *int
}

// LedgerSummary aggregates milestone payments. It is always derived from
// the milestone rows and never persisted.
type LedgerSummary struct {
	TotalCents     int64
	TotalPaid      int64
	TotalPending   int64
	PercentagePaid decimal.Decimal
}

// MilestonePayment is a verified milestone.paid webhook payload.
type MilestonePayment struct {
	ShareToken      string
	MilestoneNumber int32
	AmountCents     int64
	PaymentRef      string
}

// Milestone ledger errors.
var (
	ErrPlanExists         = &Error{Code: ECONFLICT, Message: "Estimate already has a milestone plan"}
	ErrPlanNotAllowed     = &Error{Code: ECONFLICT, Message: "Milestone plans cannot be added to closed estimates"}
	ErrPercentageSum      = &Error{Code: EINVALID, Message: "Milestone percentages must sum to 100"}
	ErrMilestoneAmount    = &Error{Code: EINVALID, Message: "Payment amount does not match the milestone amount"}
	ErrMilestoneNotBilled = &Error{Code: ECONFLICT, Message: "Milestone cannot be invoiced in the estimate's current state"}
	ErrPlanWithDeposit    = &Error{Code: ECONFLICT, Message: "Estimates with a deposit cannot also have a milestone plan"}
	ErrPlanBilled         = &Error{Code: ECONFLICT, Message: "Estimates with a milestone plan are invoiced one milestone at a time"}
	ErrPlanLocked         = &Error{Code: ECONFLICT, Message: "Milestone plan has payments recorded and cannot be re-split"}
)

// MilestoneService manages payment plans attached to estimates.
type MilestoneService interface {
	// CreatePlan validates and stores an ordered plan for an estimate.
	CreatePlan(ctx context.Context, estimateID string, stages []PlanStage) ([]Milestone, error)

	// MarkPaid marks a milestone paid. Paying a paid milestone returns it unchanged.
	MarkPaid(ctx context.Context, milestoneID string, paymentRef string) (*Milestone, error)

	// RecordPayment applies a verified milestone.paid webhook and invoices the milestone.
	RecordPayment(ctx context.Context, payment MilestonePayment) (*Milestone, error)

	// CheckOverdue flips pending milestones past due to overdue and returns how many changed.
	CheckOverdue(ctx context.Context, now time.Time) (int, error)

	// Summary derives paid and pending totals for an estimate.
	Summary(ctx context.Context, estimateID string) (*LedgerSummary, error)
}
