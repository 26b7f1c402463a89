package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/bidwell/internal/domain"
)

// MockGateway is a Gateway for tests and local development.
// It never calls Stripe.
type MockGateway struct {
	// ParseWebhookFunc allows customizing webhook parsing behavior
	ParseWebhookFunc func(payload []byte, signature string) (*WebhookEvent, error)

	// CreateCheckoutSessionFunc allows customizing session creation behavior
	CreateCheckoutSessionFunc func(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	mu sync.Mutex

	// Sessions stores created sessions by id
	Sessions map[string]CheckoutParams

	// CallLog tracks method calls for test assertions
	CallLog []string
}

var _ Gateway = (*MockGateway)(nil)

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Sessions: make(map[string]CheckoutParams),
		CallLog:  []string{},
	}
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	m.record("ParseWebhook(%d bytes)", len(payload))

	if m.ParseWebhookFunc != nil {
		return m.ParseWebhookFunc(payload, signature)
	}
	return nil, ErrInvalidWebhookSignature
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	m.record("CreateCheckoutSession(%s, %d)", params.Event, params.AmountCents)

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}

	if params.AmountCents < domain.MinimumChargeCents {
		return nil, ErrAmountTooSmall
	}

	id := "cs_test_" + uuid.New().String()
	m.mu.Lock()
	m.Sessions[id] = params
	m.mu.Unlock()

	return &CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (m *MockGateway) record(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, fmt.Sprintf(format, args...))
}
