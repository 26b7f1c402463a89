package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

const testSecret = "whsec_test_secret"

func signed(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func eventJSON(id, eventType, object string) string {
	return fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"api_version":"2020-08-27","data":{"object":%s}}`, id, eventType, object)
}

func newTestGateway() *StripeGateway {
	return NewStripeGateway(StripeConfig{APIKey: "sk_test_123", WebhookSecret: testSecret})
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *domain.PaymentEvent
		wantErr error
	}{
		{
			name: "deposit checkout completed",
			payload: eventJSON("evt_1", "checkout.session.completed",
				`{"id":"cs_1","object":"checkout.session","payment_status":"paid","amount_total":32400,"payment_intent":"pi_1",
				  "metadata":{"bidwell_event":"deposit.paid","share_token":"tok"}}`),
			want: &domain.PaymentEvent{
				ID: "evt_1", Provider: "stripe", Type: domain.EventDepositPaid,
				ShareToken: "tok", AmountCents: 32400, PaymentRef: "pi_1",
			},
		},
		{
			name: "milestone payment intent",
			payload: eventJSON("evt_2", "payment_intent.succeeded",
				`{"id":"pi_2","object":"payment_intent","amount":40000,"amount_received":40000,
				  "metadata":{"bidwell_event":"milestone.paid","share_token":"tok","milestone_number":"2"}}`),
			want: &domain.PaymentEvent{
				ID: "evt_2", Provider: "stripe", Type: domain.EventMilestonePaid,
				ShareToken: "tok", MilestoneNumber: 2, AmountCents: 40000, PaymentRef: "pi_2",
			},
		},
		{
			name: "unpaid session ignored",
			payload: eventJSON("evt_3", "checkout.session.completed",
				`{"id":"cs_3","object":"checkout.session","payment_status":"unpaid","amount_total":100,
				  "metadata":{"bidwell_event":"deposit.paid","share_token":"tok"}}`),
		},
		{
			name:    "foreign metadata ignored",
			payload: eventJSON("evt_4", "payment_intent.succeeded", `{"id":"pi_4","object":"payment_intent","amount":500,"metadata":{}}`),
		},
		{
			name:    "unrelated event type ignored",
			payload: eventJSON("evt_5", "customer.created", `{"id":"cus_1","object":"customer"}`),
		},
		{
			name: "milestone without number",
			payload: eventJSON("evt_6", "payment_intent.succeeded",
				`{"id":"pi_6","object":"payment_intent","amount":500,"metadata":{"bidwell_event":"milestone.paid","share_token":"tok"}}`),
			wantErr: ErrMalformedEvent,
		},
		{
			name: "missing share token",
			payload: eventJSON("evt_7", "payment_intent.succeeded",
				`{"id":"pi_7","object":"payment_intent","amount":500,"metadata":{"bidwell_event":"deposit.paid"}}`),
			wantErr: ErrMalformedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, header := signed(t, tt.payload)

			event, err := newTestGateway().ParseWebhook(payload, header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, event)

			if tt.want == nil {
				assert.Nil(t, event.Payment)
				return
			}
			require.NotNil(t, event.Payment)
			got := *event.Payment
			got.Payload = nil
			assert.Equal(t, *tt.want, got)
		})
	}
}

func TestStripeGateway_ParseWebhook_RejectsBadSignature(t *testing.T) {
	payload, _ := signed(t, eventJSON("evt_1", "customer.created", `{"id":"cus_1"}`))

	_, err := newTestGateway().ParseWebhook(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	g := newTestGateway()

	var captured *stripe.CheckoutSessionParams
	g.newSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"}, nil
	}

	session, err := g.CreateCheckoutSession(context.Background(), CheckoutParams{
		OwnerID: "owner-1", Event: domain.EventMilestonePaid, ShareToken: "tok", MilestoneNumber: 2,
		AmountCents: 40000, Description: "Milestone 2: Rough-in", SuccessURL: "https://app.test/ok", CancelURL: "https://app.test/no",
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	require.NotNil(t, captured)
	assert.Equal(t, "milestone.paid", captured.Metadata[MetaEvent])
	assert.Equal(t, "2", captured.Metadata[MetaMilestoneNumber])
	assert.Equal(t, "tok", captured.Metadata[MetaShareToken])
	assert.Equal(t, int64(40000), *captured.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *captured.LineItems[0].PriceData.Currency)
}

func TestStripeGateway_CreateCheckoutSession_Errors(t *testing.T) {
	g := newTestGateway()

	_, err := g.CreateCheckoutSession(context.Background(), CheckoutParams{AmountCents: 10})
	assert.ErrorIs(t, err, ErrAmountTooSmall)

	g.newSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, &stripe.Error{Msg: "rate limited", Code: "rate_limit"}
	}
	_, err = g.CreateCheckoutSession(context.Background(), CheckoutParams{AmountCents: 5000, Event: domain.EventDepositPaid})

	var stripeErr *StripeError
	require.True(t, errors.As(err, &stripeErr))
	assert.True(t, stripeErr.IsTemporary())
}
