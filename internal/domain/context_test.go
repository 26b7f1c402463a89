package domain

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestOwnerContext(t *testing.T) {
	t.Run("OwnerFromContext returns nil when no owner", func(t *testing.T) {
		if owner := OwnerFromContext(context.Background()); owner != nil {
			t.Errorf("expected nil owner, got %+v", owner)
		}
	})

	t.Run("OwnerIDFromContext returns ID when owner set", func(t *testing.T) {
		expected := &Owner{ID: uuid.New(), BusinessName: "Hammer & Sons"}
		ctx := NewContextWithOwner(context.Background(), expected)

		if id := OwnerIDFromContext(ctx); id != expected.ID {
			t.Errorf("expected ID %v, got %v", expected.ID, id)
		}
	})

	t.Run("RequireOwnerID returns unauthorized without owner", func(t *testing.T) {
		_, err := RequireOwnerID(context.Background(), "estimate.get")
		if !IsCode(err, EUNAUTHORIZED) {
			t.Errorf("expected unauthorized, got %v", err)
		}
	})
}

func TestRequestIDContext(t *testing.T) {
	ctx := NewContextWithRequestID(context.Background(), "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
}
