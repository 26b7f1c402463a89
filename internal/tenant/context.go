// Package tenant resolves the owner that a request or background job acts
// for and attaches it to the context.
//
// Every service reads the owner with domain.RequireOwnerID, so HTTP handlers
// and workers must go through this package before calling into a service.
package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukerupert/bidwell/internal/domain"
)

// WithOwner resolves id and returns a context carrying the full owner.
func WithOwner(ctx context.Context, r Resolver, id uuid.UUID) (context.Context, error) {
	if id == uuid.Nil {
		return ctx, ErrNoOwner
	}
	owner, err := r.ByID(ctx, id)
	if err != nil {
		return ctx, err
	}
	return domain.NewContextWithOwner(ctx, owner), nil
}

// WithOwnerID attaches an owner carrying only its ID. Jobs use it; the
// services load whatever else they need.
func WithOwnerID(ctx context.Context, id uuid.UUID) (context.Context, error) {
	if id == uuid.Nil {
		return ctx, ErrNoOwner
	}
	return domain.NewContextWithOwner(ctx, &domain.Owner{ID: id}), nil
}
