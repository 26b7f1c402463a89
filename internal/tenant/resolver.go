package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
)

// Resolver resolves owners by ID.
type Resolver interface {
	ByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error)
}

// DBResolver implements Resolver using database queries.
type DBResolver struct {
	queries repository.Querier
}

// NewDBResolver creates a new database-backed owner resolver.
func NewDBResolver(queries repository.Querier) *DBResolver {
	return &DBResolver{queries: queries}
}

// ByID resolves an owner by ID.
func (r *DBResolver) ByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error) {
	row, err := r.queries.GetOwner(ctx, postgres.UUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	return postgres.MapOwner(row), nil
}

// Compile-time check that DBResolver implements Resolver.
var _ Resolver = (*DBResolver)(nil)
