package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const estimateColumns = `id, owner_id, estimate_number, client_name, client_email, client_phone, items,
    tax_rate, discount_cents, shipping_cents, subtotal_cents, tax_cents, total_cents,
    deposit_type, deposit_value, deposit_cents, status, share_token,
    sent_at, accepted_at, deposit_paid_at, invoiced_at, cancelled_at, created_at, updated_at`

func scanEstimate(row pgx.Row) (Estimate, error) {
	var i Estimate
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.EstimateNumber,
		&i.ClientName,
		&i.ClientEmail,
		&i.ClientPhone,
		&i.Items,
		&i.TaxRate,
		&i.DiscountCents,
		&i.ShippingCents,
		&i.SubtotalCents,
		&i.TaxCents,
		&i.TotalCents,
		&i.DepositType,
		&i.DepositValue,
		&i.DepositCents,
		&i.Status,
		&i.ShareToken,
		&i.SentAt,
		&i.AcceptedAt,
		&i.DepositPaidAt,
		&i.InvoicedAt,
		&i.CancelledAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectEstimates(rows pgx.Rows, err error) ([]Estimate, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Estimate{}
	for rows.Next() {
		i, err := scanEstimate(rows)
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

const createEstimate = `-- name: CreateEstimate :one
INSERT INTO estimates (
    owner_id, estimate_number, client_name, client_email, client_phone, items,
    tax_rate, discount_cents, shipping_cents, subtotal_cents, tax_cents, total_cents,
    deposit_type, deposit_value, deposit_cents, share_token
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
)
RETURNING ` + estimateColumns

type CreateEstimateParams struct {
	OwnerID        pgtype.UUID    `json:"owner_id"`
	EstimateNumber int32          `json:"estimate_number"`
	ClientName     string         `json:"client_name"`
	ClientEmail    string         `json:"client_email"`
	ClientPhone    string         `json:"client_phone"`
	Items          []byte         `json:"items"`
	TaxRate        pgtype.Numeric `json:"tax_rate"`
	DiscountCents  int64          `json:"discount_cents"`
	ShippingCents  int64          `json:"shipping_cents"`
	SubtotalCents  int64          `json:"subtotal_cents"`
	TaxCents       int64          `json:"tax_cents"`
	TotalCents     int64          `json:"total_cents"`
	DepositType    string         `json:"deposit_type"`
	DepositValue   pgtype.Numeric `json:"deposit_value"`
	DepositCents   int64          `json:"deposit_cents"`
	ShareToken     string         `json:"share_token"`
}

func (q *Queries) CreateEstimate(ctx context.Context, arg CreateEstimateParams) (Estimate, error) {
	row := q.db.QueryRow(ctx, createEstimate,
		arg.OwnerID,
		arg.EstimateNumber,
		arg.ClientName,
		arg.ClientEmail,
		arg.ClientPhone,
		arg.Items,
		arg.TaxRate,
		arg.DiscountCents,
		arg.ShippingCents,
		arg.SubtotalCents,
		arg.TaxCents,
		arg.TotalCents,
		arg.DepositType,
		arg.DepositValue,
		arg.DepositCents,
		arg.ShareToken,
	)
	return scanEstimate(row)
}

const getEstimate = `-- name: GetEstimate :one
SELECT ` + estimateColumns + `
FROM estimates
WHERE id = $1 AND owner_id = $2`

type GetEstimateParams struct {
	ID      pgtype.UUID `json:"id"`
	OwnerID pgtype.UUID `json:"owner_id"`
}

func (q *Queries) GetEstimate(ctx context.Context, arg GetEstimateParams) (Estimate, error) {
	return scanEstimate(q.db.QueryRow(ctx, getEstimate, arg.ID, arg.OwnerID))
}

const getEstimateByShareToken = `-- name: GetEstimateByShareToken :one
SELECT ` + estimateColumns + `
FROM estimates
WHERE share_token = $1`

func (q *Queries) GetEstimateByShareToken(ctx context.Context, shareToken string) (Estimate, error) {
	return scanEstimate(q.db.QueryRow(ctx, getEstimateByShareToken, shareToken))
}

const lockEstimate = `-- name: LockEstimate :one
SELECT id FROM estimates WHERE id = $1 FOR UPDATE`

// LockEstimate takes a row lock on the estimate for the rest of the
// enclosing transaction.
func (q *Queries) LockEstimate(ctx context.Context, id pgtype.UUID) (pgtype.UUID, error) {
	row := q.db.QueryRow(ctx, lockEstimate, id)
	var locked pgtype.UUID
	err := row.Scan(&locked)
	return locked, err
}

const updateEstimateDraft = `-- name: UpdateEstimateDraft :one
UPDATE estimates SET
    client_name = $3,
    client_email = $4,
    client_phone = $5,
    items = $6,
    tax_rate = $7,
    discount_cents = $8,
    shipping_cents = $9,
    subtotal_cents = $10,
    tax_cents = $11,
    total_cents = $12,
    deposit_type = $13,
    deposit_value = $14,
    deposit_cents = $15,
    updated_at = NOW()
WHERE id = $1 AND owner_id = $2 AND status = 'draft'
RETURNING ` + estimateColumns

type UpdateEstimateDraftParams struct {
	ID            pgtype.UUID    `json:"id"`
	OwnerID       pgtype.UUID    `json:"owner_id"`
	ClientName    string         `json:"client_name"`
	ClientEmail   string         `json:"client_email"`
	ClientPhone   string         `json:"client_phone"`
	Items         []byte         `json:"items"`
	TaxRate       pgtype.Numeric `json:"tax_rate"`
	DiscountCents int64          `json:"discount_cents"`
	ShippingCents int64          `json:"shipping_cents"`
	SubtotalCents int64          `json:"subtotal_cents"`
	TaxCents      int64          `json:"tax_cents"`
	TotalCents    int64          `json:"total_cents"`
	DepositType   string         `json:"deposit_type"`
	DepositValue  pgtype.Numeric `json:"deposit_value"`
	DepositCents  int64          `json:"deposit_cents"`
}

func (q *Queries) UpdateEstimateDraft(ctx context.Context, arg UpdateEstimateDraftParams) (Estimate, error) {
	row := q.db.QueryRow(ctx, updateEstimateDraft,
		arg.ID,
		arg.OwnerID,
		arg.ClientName,
		arg.ClientEmail,
		arg.ClientPhone,
		arg.Items,
		arg.TaxRate,
		arg.DiscountCents,
		arg.ShippingCents,
		arg.SubtotalCents,
		arg.TaxCents,
		arg.TotalCents,
		arg.DepositType,
		arg.DepositValue,
		arg.DepositCents,
	)
	return scanEstimate(row)
}

const transitionEstimateStatus = `-- name: TransitionEstimateStatus :one
UPDATE estimates SET
    status = $4::text,
    sent_at = CASE WHEN $4::text = 'sent' THEN NOW() ELSE sent_at END,
    accepted_at = CASE WHEN $4::text = 'accepted' THEN NOW() ELSE accepted_at END,
    deposit_paid_at = CASE WHEN $4::text = 'deposit_paid' THEN NOW() ELSE deposit_paid_at END,
    invoiced_at = CASE WHEN $4::text = 'invoiced' THEN NOW() ELSE invoiced_at END,
    cancelled_at = CASE WHEN $4::text = 'cancelled' THEN NOW() ELSE cancelled_at END,
    updated_at = NOW()
WHERE id = $1 AND owner_id = $2 AND status = $3::text
RETURNING ` + estimateColumns

type TransitionEstimateStatusParams struct {
	ID         pgtype.UUID `json:"id"`
	OwnerID    pgtype.UUID `json:"owner_id"`
	FromStatus string      `json:"from_status"`
	ToStatus   string      `json:"to_status"`
}

// TransitionEstimateStatus moves an estimate from FromStatus to ToStatus.
// It returns pgx.ErrNoRows when the estimate is no longer in FromStatus.
func (q *Queries) TransitionEstimateStatus(ctx context.Context, arg TransitionEstimateStatusParams) (Estimate, error) {
	row := q.db.QueryRow(ctx, transitionEstimateStatus,
		arg.ID,
		arg.OwnerID,
		arg.FromStatus,
		arg.ToStatus,
	)
	return scanEstimate(row)
}

const listStaleEstimates = `-- name: ListStaleEstimates :many
SELECT ` + estimateColumns + `
FROM estimates
WHERE owner_id = $1
  AND status IN ('sent', 'accepted')
  AND updated_at < $2
ORDER BY updated_at ASC`

type ListStaleEstimatesParams struct {
	OwnerID       pgtype.UUID        `json:"owner_id"`
	UpdatedBefore pgtype.Timestamptz `json:"updated_before"`
}

func (q *Queries) ListStaleEstimates(ctx context.Context, arg ListStaleEstimatesParams) ([]Estimate, error) {
	return collectEstimates(q.db.Query(ctx, listStaleEstimates, arg.OwnerID, arg.UpdatedBefore))
}

const listEstimatesAwaitingDeposit = `-- name: ListEstimatesAwaitingDeposit :many
SELECT ` + estimateColumns + `
FROM estimates
WHERE status = 'sent'
  AND deposit_cents > 0
  AND sent_at IS NOT NULL
ORDER BY sent_at ASC`

func (q *Queries) ListEstimatesAwaitingDeposit(ctx context.Context) ([]Estimate, error) {
	return collectEstimates(q.db.Query(ctx, listEstimatesAwaitingDeposit))
}
