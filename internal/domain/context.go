// Package domain provides core business types, state machines and context
// helpers for bidwell.
//
// Context helpers centralize request-scoped data access so that every
// query is scoped to the owner that made the request.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// ownerContextKey stores the owning contractor account in context.
	ownerContextKey contextKey = iota

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// Owner is the contractor account that estimates and invoices belong to.
// This is a minimal struct for context storage.
type Owner struct {
	ID           uuid.UUID
	BusinessName string
	Email        string
	Phone        string
}

// --- Owner Context Helpers ---

// NewContextWithOwner returns a new context with the owner attached.
func NewContextWithOwner(ctx context.Context, owner *Owner) context.Context {
	return context.WithValue(ctx, ownerContextKey, owner)
}

// OwnerFromContext retrieves the owner from context.
// Returns nil if no owner is present.
func OwnerFromContext(ctx context.Context) *Owner {
	owner, _ := ctx.Value(ownerContextKey).(*Owner)
	return owner
}

// OwnerIDFromContext retrieves the owner ID from context.
// Returns uuid.Nil if no owner is present.
func OwnerIDFromContext(ctx context.Context) uuid.UUID {
	if owner := OwnerFromContext(ctx); owner != nil {
		return owner.ID
	}
	return uuid.Nil
}

// RequireOwnerID retrieves the owner ID or returns an unauthorized error.
func RequireOwnerID(ctx context.Context, op string) (uuid.UUID, error) {
	id := OwnerIDFromContext(ctx)
	if id == uuid.Nil {
		return uuid.Nil, Unauthorized(op, "owner required")
	}
	return id, nil
}

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
