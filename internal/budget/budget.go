// Package budget meters per-owner AI spend for reminder personalization.
//
// A Counter checks and charges the monthly budget in a single atomic step,
// so two concurrent reminders can never both spend the last of it.
package budget

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Counter reserves AI spend against an owner's monthly budget.
type Counter interface {
	// Reserve charges costCents when the owner still has budget left for the
	// month containing now. It returns false, nil when the budget is spent.
	Reserve(ctx context.Context, ownerID uuid.UUID, budgetCents, costCents int64, now time.Time) (bool, error)
}
