// Package billing wraps the payment gateway: verifying webhooks and opening
// hosted checkout pages for deposits and milestones.
package billing

import (
	"context"

	"github.com/dukerupert/bidwell/internal/domain"
)

// Metadata keys attached to every checkout session. The webhook maps a
// completed session back to an estimate through them.
const (
	MetaEvent           = "bidwell_event"
	MetaShareToken      = "share_token"
	MetaMilestoneNumber = "milestone_number"
	MetaOwnerID         = "owner_id"
)

// Gateway is the payment provider as seen by bidwell.
type Gateway interface {
	// ParseWebhook verifies the signature and translates the event.
	// WebhookEvent.Payment is nil for events bidwell does not act on.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)

	// CreateCheckoutSession opens a hosted payment page for one amount.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

// WebhookEvent is a verified gateway event.
type WebhookEvent struct {
	ID       string
	Type     string
	Payment  *domain.PaymentEvent
	Provider string
}

// CheckoutParams describes a single payment the client is asked to make.
type CheckoutParams struct {
	OwnerID         string
	Event           domain.PaymentEventType
	ShareToken      string
	MilestoneNumber int32 // zero for deposits
	AmountCents     int64
	Description     string
	CustomerEmail   string
	SuccessURL      string
	CancelURL       string
	// IdempotencyKey makes repeated clicks reuse one session.
	IdempotencyKey string
}

// CheckoutSession is the hosted page the client is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}
