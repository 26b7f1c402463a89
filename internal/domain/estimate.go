package domain

//go:generate mockgen -source=estimate.go -destination=mock/estimate.go -package=mock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstimateStatus is the lifecycle state of an estimate.
type EstimateStatus string

const (
	EstimateDraft       EstimateStatus = "draft"
	EstimateSent        EstimateStatus = "sent"
	EstimateAccepted    EstimateStatus = "accepted"
	EstimateDepositPaid EstimateStatus = "deposit_paid"
	EstimateInvoiced    EstimateStatus = "invoiced"
	EstimateCancelled   EstimateStatus = "cancelled"
)

// estimateTransitions lists every allowed move. Anything absent is an
// InvalidTransition.
var estimateTransitions = map[EstimateStatus][]EstimateStatus{
	EstimateDraft:       {EstimateSent, EstimateCancelled},
	EstimateSent:        {EstimateAccepted, EstimateDepositPaid, EstimateCancelled},
	EstimateAccepted:    {EstimateInvoiced, EstimateCancelled},
	EstimateDepositPaid: {EstimateInvoiced, EstimateCancelled},
	EstimateInvoiced:    {},
	EstimateCancelled:   {},
}

// Valid reports whether s is one of the known estimate states.
func (s EstimateStatus) Valid() bool {
	_, ok := estimateTransitions[s]
	return ok
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to EstimateStatus) bool {
	for _, next := range estimateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a TransitionError when from -> to is not allowed.
func CheckTransition(from, to EstimateStatus) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Convertible reports whether an estimate in this state may be turned into
// a full invoice.
func (s EstimateStatus) Convertible() bool {
	return s == EstimateAccepted || s == EstimateDepositPaid
}

// DepositType tags how a deposit is specified.
type DepositType string

const (
	DepositNone    DepositType = "none"
	DepositPercent DepositType = "percent"
	DepositFixed   DepositType = "fixed"
)

// DepositSpec is either a percentage of the total or a fixed currency amount.
// The two are mutually exclusive; Type selects which interpretation of Value applies.
type DepositSpec struct {
	Type  DepositType     `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// LineItem is one billable row of an estimate or invoice.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
}

// Client is the estimate recipient. Clients are not a separate resource;
// their details travel with the estimate and are copied onto invoices.
type Client struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Estimate is a proposed quote sent to a client.
type Estimate struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	EstimateNumber int32
	Client         Client
	Items          []LineItem
	TaxRate        decimal.Decimal
	DiscountCents  int64
	ShippingCents  int64
	SubtotalCents  int64
	TaxCents       int64
	TotalCents     int64
	Deposit        DepositSpec
	// DepositCents is recomputed from the live total while in draft and
	// frozen when the estimate is sent. Payment matching uses the frozen value.
	DepositCents  int64
	Status        EstimateStatus
	ShareToken    string
	SentAt        *time.Time
	AcceptedAt    *time.Time
	DepositPaidAt *time.Time
	InvoicedAt    *time.Time
	CancelledAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RequiresDeposit reports whether a payment must arrive before conversion.
func (e *Estimate) RequiresDeposit() bool {
	return e.DepositCents > 0
}

// IsStale reports whether an estimate has been waiting on the client for
// longer than staleAfter. Stale estimates are informational only.
func (e *Estimate) IsStale(now time.Time, staleAfter time.Duration) bool {
	if e.Status != EstimateSent && e.Status != EstimateAccepted {
		return false
	}
	return now.Sub(e.UpdatedAt) > staleAfter
}

// EstimateDetail is an estimate with its derived milestone ledger.
type EstimateDetail struct {
	Estimate   *Estimate
	Milestones []Milestone
	Ledger     LedgerSummary
	Invoices   []Invoice
}

// MinimumChargeCents is the smallest amount the payment gateway will
// collect. Deposits and milestones below it could never be paid online.
const MinimumChargeCents = 50

// Estimate state machine errors.
var (
	ErrInvalidState     = &Error{Code: ECONFLICT, Message: "Estimate is not ready for conversion"}
	ErrDepositRequired  = &Error{Code: EINVALID, Message: "A deposit payment is required before acceptance"}
	ErrDepositMismatch  = &Error{Code: EINVALID, Message: "Payment amount does not match the deposit due"}
	ErrAlreadyProcessed = &Error{Code: ECONFLICT, Message: "Event already processed"}
	ErrEstimateLocked   = &Error{Code: ECONFLICT, Message: "Estimate can only be edited while in draft"}
)

// CreateEstimateParams holds owner input for a new draft estimate.
type CreateEstimateParams struct {
	Client        Client
	Items         []LineItem
	TaxRate       decimal.Decimal
	DiscountCents int64
	ShippingCents int64
	Deposit       DepositSpec
}

// UpdateEstimateParams replaces the editable content of a draft estimate.
type UpdateEstimateParams struct {
	EstimateID    string
	Client        Client
	Items         []LineItem
	TaxRate       decimal.Decimal
	DiscountCents int64
	ShippingCents int64
	Deposit       DepositSpec
}

// DepositPayment is a verified deposit.paid webhook payload.
type DepositPayment struct {
	ShareToken  string
	AmountCents int64
	PaymentRef  string
}

// EstimateService drives the estimate state machine.
//
// Owner operations read the owner from context (NewContextWithOwner).
// Client operations are addressed by share token.
type EstimateService interface {
	// CreateEstimate creates a draft with a fresh share token and number.
	CreateEstimate(ctx context.Context, params CreateEstimateParams) (*Estimate, error)

	// UpdateDraft replaces items and pricing. Only allowed in draft.
	UpdateDraft(ctx context.Context, params UpdateEstimateParams) (*Estimate, error)

	// GetEstimate returns the estimate with its milestones, ledger and invoices.
	GetEstimate(ctx context.Context, estimateID string) (*EstimateDetail, error)

	// GetByShareToken resolves a share link to its estimate.
	GetByShareToken(ctx context.Context, token string) (*EstimateDetail, error)

	// Send moves draft -> sent after validating client and items.
	Send(ctx context.Context, estimateID string) (*Estimate, error)

	// Accept moves sent -> accepted for estimates that need no deposit.
	Accept(ctx context.Context, token string) (*Estimate, error)

	// Cancel moves any non-invoiced estimate to cancelled.
	Cancel(ctx context.Context, estimateID string) (*Estimate, error)

	// ConfirmDeposit applies a verified deposit payment. Replays are no-ops.
	ConfirmDeposit(ctx context.Context, payment DepositPayment) (*Estimate, error)

	// ListStale returns the owner's estimates waiting on the client too long.
	ListStale(ctx context.Context, now time.Time) ([]Estimate, error)
}
