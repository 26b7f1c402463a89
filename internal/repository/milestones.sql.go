package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const milestoneColumns = `id, owner_id, estimate_id, milestone_number, description, percentage,
    amount_cents, due_date, status, paid_at, payment_ref, created_at, updated_at`

func scanMilestone(row pgx.Row) (Milestone, error) {
	var i Milestone
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.EstimateID,
		&i.MilestoneNumber,
		&i.Description,
		&i.Percentage,
		&i.AmountCents,
		&i.DueDate,
		&i.Status,
		&i.PaidAt,
		&i.PaymentRef,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectMilestones(rows pgx.Rows, err error) ([]Milestone, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Milestone{}
	for rows.Next() {
		i, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countMilestones = `-- name: CountMilestones :one
SELECT COUNT(*) FROM milestones WHERE estimate_id = $1`

func (q *Queries) CountMilestones(ctx context.Context, estimateID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countMilestones, estimateID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createMilestone = `-- name: CreateMilestone :one
INSERT INTO milestones (
    owner_id, estimate_id, milestone_number, description, percentage, amount_cents, due_date
) VALUES (
    $1, $2, $3, $4, $5, $6, $7
)
RETURNING ` + milestoneColumns

type CreateMilestoneParams struct {
	OwnerID         pgtype.UUID    `json:"owner_id"`
	EstimateID      pgtype.UUID    `json:"estimate_id"`
	MilestoneNumber int32          `json:"milestone_number"`
	Description     string         `json:"description"`
	Percentage      pgtype.Numeric `json:"percentage"`
	AmountCents     int64          `json:"amount_cents"`
	DueDate         pgtype.Date    `json:"due_date"`
}

func (q *Queries) CreateMilestone(ctx context.Context, arg CreateMilestoneParams) (Milestone, error) {
	row := q.db.QueryRow(ctx, createMilestone,
		arg.OwnerID,
		arg.EstimateID,
		arg.MilestoneNumber,
		arg.Description,
		arg.Percentage,
		arg.AmountCents,
		arg.DueDate,
	)
	return scanMilestone(row)
}

const getMilestone = `-- name: GetMilestone :one
SELECT ` + milestoneColumns + `
FROM milestones
WHERE id = $1 AND owner_id = $2`

type GetMilestoneParams struct {
	ID      pgtype.UUID `json:"id"`
	OwnerID pgtype.UUID `json:"owner_id"`
}

func (q *Queries) GetMilestone(ctx context.Context, arg GetMilestoneParams) (Milestone, error) {
	return scanMilestone(q.db.QueryRow(ctx, getMilestone, arg.ID, arg.OwnerID))
}

const getMilestoneByNumber = `-- name: GetMilestoneByNumber :one
SELECT ` + milestoneColumns + `
FROM milestones
WHERE estimate_id = $1 AND milestone_number = $2`

type GetMilestoneByNumberParams struct {
	EstimateID      pgtype.UUID `json:"estimate_id"`
	MilestoneNumber int32       `json:"milestone_number"`
}

func (q *Queries) GetMilestoneByNumber(ctx context.Context, arg GetMilestoneByNumberParams) (Milestone, error) {
	return scanMilestone(q.db.QueryRow(ctx, getMilestoneByNumber, arg.EstimateID, arg.MilestoneNumber))
}

const listMilestonesByEstimate = `-- name: ListMilestonesByEstimate :many
SELECT ` + milestoneColumns + `
FROM milestones
WHERE estimate_id = $1
ORDER BY milestone_number ASC`

func (q *Queries) ListMilestonesByEstimate(ctx context.Context, estimateID pgtype.UUID) ([]Milestone, error) {
	return collectMilestones(q.db.Query(ctx, listMilestonesByEstimate, estimateID))
}

const markMilestonePaid = `-- name: MarkMilestonePaid :one
UPDATE milestones SET
    status = 'paid',
    paid_at = NOW(),
    payment_ref = $2,
    updated_at = NOW()
WHERE id = $1 AND status IN ('pending', 'overdue')
RETURNING ` + milestoneColumns

type MarkMilestonePaidParams struct {
	ID         pgtype.UUID `json:"id"`
	PaymentRef pgtype.Text `json:"payment_ref"`
}

// MarkMilestonePaid returns pgx.ErrNoRows when the milestone is already paid.
func (q *Queries) MarkMilestonePaid(ctx context.Context, arg MarkMilestonePaidParams) (Milestone, error) {
	return scanMilestone(q.db.QueryRow(ctx, markMilestonePaid, arg.ID, arg.PaymentRef))
}

const updateMilestoneAmount = `-- name: UpdateMilestoneAmount :one
UPDATE milestones SET
    amount_cents = $2,
    updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING ` + milestoneColumns

type UpdateMilestoneAmountParams struct {
	ID          pgtype.UUID `json:"id"`
	AmountCents int64       `json:"amount_cents"`
}

// UpdateMilestoneAmount returns pgx.ErrNoRows once the milestone is no
// longer pending.
func (q *Queries) UpdateMilestoneAmount(ctx context.Context, arg UpdateMilestoneAmountParams) (Milestone, error) {
	return scanMilestone(q.db.QueryRow(ctx, updateMilestoneAmount, arg.ID, arg.AmountCents))
}

const markOverdueMilestones = `-- name: MarkOverdueMilestones :execrows
UPDATE milestones SET
    status = 'overdue',
    updated_at = NOW()
WHERE status = 'pending'
  AND due_date IS NOT NULL
  AND due_date < $1`

func (q *Queries) MarkOverdueMilestones(ctx context.Context, today pgtype.Date) (int64, error) {
	result, err := q.db.Exec(ctx, markOverdueMilestones, today)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listUnpaidMilestonesDue = `-- name: ListUnpaidMilestonesDue :many
SELECT ` + milestoneColumns + `
FROM milestones
WHERE status IN ('pending', 'overdue')
  AND due_date IS NOT NULL
  AND due_date < $1
ORDER BY due_date ASC, milestone_number ASC`

// ListUnpaidMilestonesDue lists unpaid milestones whose due date is before today.
func (q *Queries) ListUnpaidMilestonesDue(ctx context.Context, today pgtype.Date) ([]Milestone, error) {
	return collectMilestones(q.db.Query(ctx, listUnpaidMilestonesDue, today))
}
