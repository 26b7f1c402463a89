package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const invoiceColumns = `id, owner_id, estimate_id, milestone_number, invoice_number,
    client_name, client_email, client_phone, items,
    subtotal_cents, tax_cents, discount_cents, shipping_cents, total_cents, amount_paid_cents,
    status, issued_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.EstimateID,
		&i.MilestoneNumber,
		&i.InvoiceNumber,
		&i.ClientName,
		&i.ClientEmail,
		&i.ClientPhone,
		&i.Items,
		&i.SubtotalCents,
		&i.TaxCents,
		&i.DiscountCents,
		&i.ShippingCents,
		&i.TotalCents,
		&i.AmountPaidCents,
		&i.Status,
		&i.IssuedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createInvoice = `-- name: CreateInvoice :one
INSERT INTO invoices (
    owner_id, estimate_id, milestone_number, invoice_number,
    client_name, client_email, client_phone, items,
    subtotal_cents, tax_cents, discount_cents, shipping_cents, total_cents, amount_paid_cents,
    status
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
)
ON CONFLICT DO NOTHING
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
	OwnerID         pgtype.UUID `json:"owner_id"`
	EstimateID      pgtype.UUID `json:"estimate_id"`
	MilestoneNumber pgtype.Int4 `json:"milestone_number"`
	InvoiceNumber   string      `json:"invoice_number"`
	ClientName      string      `json:"client_name"`
	ClientEmail     string      `json:"client_email"`
	ClientPhone     string      `json:"client_phone"`
	Items           []byte      `json:"items"`
	SubtotalCents   int64       `json:"subtotal_cents"`
	TaxCents        int64       `json:"tax_cents"`
	DiscountCents   int64       `json:"discount_cents"`
	ShippingCents   int64       `json:"shipping_cents"`
	TotalCents      int64       `json:"total_cents"`
	AmountPaidCents int64       `json:"amount_paid_cents"`
	Status          string      `json:"status"`
}

// CreateInvoice returns pgx.ErrNoRows when an invoice already exists for the
// same estimate (and milestone).
func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.OwnerID,
		arg.EstimateID,
		arg.MilestoneNumber,
		arg.InvoiceNumber,
		arg.ClientName,
		arg.ClientEmail,
		arg.ClientPhone,
		arg.Items,
		arg.SubtotalCents,
		arg.TaxCents,
		arg.DiscountCents,
		arg.ShippingCents,
		arg.TotalCents,
		arg.AmountPaidCents,
		arg.Status,
	)
	return scanInvoice(row)
}

const getFullInvoiceForEstimate = `-- name: GetFullInvoiceForEstimate :one
SELECT ` + invoiceColumns + `
FROM invoices
WHERE estimate_id = $1 AND milestone_number IS NULL`

func (q *Queries) GetFullInvoiceForEstimate(ctx context.Context, estimateID pgtype.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getFullInvoiceForEstimate, estimateID))
}

const getMilestoneInvoice = `-- name: GetMilestoneInvoice :one
SELECT ` + invoiceColumns + `
FROM invoices
WHERE estimate_id = $1 AND milestone_number = $2`

type GetMilestoneInvoiceParams struct {
	EstimateID      pgtype.UUID `json:"estimate_id"`
	MilestoneNumber int32       `json:"milestone_number"`
}

func (q *Queries) GetMilestoneInvoice(ctx context.Context, arg GetMilestoneInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getMilestoneInvoice, arg.EstimateID, arg.MilestoneNumber))
}

const listInvoicesByEstimate = `-- name: ListInvoicesByEstimate :many
SELECT ` + invoiceColumns + `
FROM invoices
WHERE estimate_id = $1
ORDER BY milestone_number ASC NULLS FIRST`

func (q *Queries) ListInvoicesByEstimate(ctx context.Context, estimateID pgtype.UUID) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoicesByEstimate, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Invoice{}
	for rows.Next() {
		i, err := scanInvoice(rows)
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
