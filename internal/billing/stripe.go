package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/stripe/stripe-go/v83"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/webhook"
)

const providerStripe = "stripe"

// StripeGateway implements Gateway using Stripe Checkout.
type StripeGateway struct {
	config StripeConfig

	// newSession is swapped out in tests.
	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway sets the package-level Stripe key and returns a gateway.
func NewStripeGateway(config StripeConfig) *StripeGateway {
	if config.Currency == "" {
		config.Currency = string(stripe.CurrencyUSD)
	}
	stripe.Key = config.APIKey
	return &StripeGateway{
		config:     config,
		newSession: checkoutsession.New,
	}
}

// ParseWebhook verifies a Stripe-Signature header and maps the event.
//
// checkout.session.completed and payment_intent.succeeded carry a payment
// when their metadata names a bidwell event; everything else is returned
// with a nil Payment.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}

	out := &WebhookEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Provider: providerStripe,
	}
	if event.Data == nil {
		return out, nil
	}

	var (
		metadata map[string]string
		amount   int64
		ref      string
	)

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return out, nil
		}
		metadata = session.Metadata
		amount = session.AmountTotal
		ref = session.ID
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			ref = session.PaymentIntent.ID
		}

	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		metadata = intent.Metadata
		amount = intent.AmountReceived
		if amount == 0 {
			amount = intent.Amount
		}
		ref = intent.ID

	default:
		return out, nil
	}

	payment, err := paymentFromMetadata(metadata, amount, ref)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		payment.ID = event.ID
		payment.Provider = providerStripe
		payment.Payload = payload
	}
	out.Payment = payment
	return out, nil
}

// paymentFromMetadata returns nil when the metadata does not belong to bidwell.
func paymentFromMetadata(metadata map[string]string, amount int64, ref string) (*domain.PaymentEvent, error) {
	kind := domain.PaymentEventType(metadata[MetaEvent])
	switch kind {
	case "":
		return nil, nil
	case domain.EventDepositPaid, domain.EventMilestonePaid:
	default:
		return nil, fmt.Errorf("%w: unknown %s %q", ErrMalformedEvent, MetaEvent, kind)
	}

	payment := &domain.PaymentEvent{
		Type:        kind,
		ShareToken:  metadata[MetaShareToken],
		AmountCents: amount,
		PaymentRef:  ref,
	}
	if payment.ShareToken == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedEvent, MetaShareToken)
	}

	if kind == domain.EventMilestonePaid {
		n, err := strconv.ParseInt(metadata[MetaMilestoneNumber], 10, 32)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: bad %s %q", ErrMalformedEvent, MetaMilestoneNumber, metadata[MetaMilestoneNumber])
		}
		payment.MilestoneNumber = int32(n)
	}
	return payment, nil
}

// CreateCheckoutSession opens a one-line payment-mode Checkout session.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	if p.AmountCents < domain.MinimumChargeCents {
		return nil, ErrAmountTooSmall
	}

	metadata := map[string]string{
		MetaEvent:      string(p.Event),
		MetaShareToken: p.ShareToken,
		MetaOwnerID:    p.OwnerID,
	}
	if p.MilestoneNumber > 0 {
		metadata[MetaMilestoneNumber] = strconv.Itoa(int(p.MilestoneNumber))
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.config.Currency),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.ShareToken),
		Metadata:          metadata,
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.Context = ctx
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	session, err := g.newSession(params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &StripeError{
			Message:       stripeErr.Msg,
			Code:          string(stripeErr.Code),
			RequestID:     stripeErr.RequestID,
			OriginalError: err,
		}
	}
	return &StripeError{Message: err.Error(), OriginalError: err}
}
