package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/google/uuid"
)

// PostgresCounter keeps usage on the owner's reminder_preferences row.
// The budget ceiling is read from the same row, so budgetCents is ignored.
type PostgresCounter struct {
	repo repository.Querier
}

var _ Counter = (*PostgresCounter)(nil)

func NewPostgresCounter(repo repository.Querier) *PostgresCounter {
	return &PostgresCounter{repo: repo}
}

func (c *PostgresCounter) Reserve(ctx context.Context, ownerID uuid.UUID, _ int64, costCents int64, now time.Time) (bool, error) {
	_, err := c.repo.IncrementAIUsage(ctx, repository.IncrementAIUsageParams{
		OwnerID:   postgres.UUID(ownerID),
		Period:    postgres.Date(domain.BillingPeriod(now)),
		CostCents: costCents,
	})
	if err != nil {
		if postgres.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reserve ai budget: %w", err)
	}
	return true, nil
}
