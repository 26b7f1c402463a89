package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getOwner = `-- name: GetOwner :one
SELECT id, business_name, email, phone, next_estimate_number, created_at, updated_at
FROM owners
WHERE id = $1`

func (q *Queries) GetOwner(ctx context.Context, id pgtype.UUID) (Owner, error) {
	row := q.db.QueryRow(ctx, getOwner, id)
	var i Owner
	err := row.Scan(
		&i.ID,
		&i.BusinessName,
		&i.Email,
		&i.Phone,
		&i.NextEstimateNumber,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const nextEstimateNumber = `-- name: NextEstimateNumber :one
UPDATE owners
SET next_estimate_number = next_estimate_number + 1,
    updated_at = NOW()
WHERE id = $1
RETURNING next_estimate_number - 1`

// NextEstimateNumber reserves the owner's next sequential estimate number.
func (q *Queries) NextEstimateNumber(ctx context.Context, ownerID pgtype.UUID) (int32, error) {
	row := q.db.QueryRow(ctx, nextEstimateNumber, ownerID)
	var n int32
	err := row.Scan(&n)
	return n, err
}
