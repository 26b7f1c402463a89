package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/google/uuid"
)

// InvoiceArchive keeps a JSON copy of every issued invoice.
type InvoiceArchive struct {
	store Storage
}

func NewInvoiceArchive(store Storage) *InvoiceArchive {
	return &InvoiceArchive{store: store}
}

// InvoiceKey is where an invoice snapshot lives, e.g.
// invoices/<owner>/INV-0042-M2.json.
func InvoiceKey(ownerID uuid.UUID, invoiceNumber string) string {
	return fmt.Sprintf("invoices/%s/%s.json", ownerID, invoiceNumber)
}

// invoiceDocument is the archived shape. It is versioned so old archives
// stay readable if the invoice type grows.
type invoiceDocument struct {
	Version         int               `json:"version"`
	ID              uuid.UUID         `json:"id"`
	OwnerID         uuid.UUID         `json:"owner_id"`
	EstimateID      uuid.UUID         `json:"estimate_id"`
	MilestoneNumber *int32            `json:"milestone_number,omitempty"`
	InvoiceNumber   string            `json:"invoice_number"`
	Client          domain.Client     `json:"client"`
	Items           []domain.LineItem `json:"items"`
	SubtotalCents   int64             `json:"subtotal_cents"`
	TaxCents        int64             `json:"tax_cents"`
	DiscountCents   int64             `json:"discount_cents"`
	ShippingCents   int64             `json:"shipping_cents"`
	TotalCents      int64             `json:"total_cents"`
	AmountPaidCents int64             `json:"amount_paid_cents"`
	Status          string            `json:"status"`
	IssuedAt        time.Time         `json:"issued_at"`
}

// Put writes the snapshot and returns its URL. Writing the same invoice
// twice overwrites it with identical content.
func (a *InvoiceArchive) Put(ctx context.Context, inv *domain.Invoice) (string, error) {
	doc := invoiceDocument{
		Version:         1,
		ID:              inv.ID,
		OwnerID:         inv.OwnerID,
		EstimateID:      inv.EstimateID,
		MilestoneNumber: inv.MilestoneNumber,
		InvoiceNumber:   inv.InvoiceNumber,
		Client:          inv.Client,
		Items:           inv.Items,
		SubtotalCents:   inv.SubtotalCents,
		TaxCents:        inv.TaxCents,
		DiscountCents:   inv.DiscountCents,
		ShippingCents:   inv.ShippingCents,
		TotalCents:      inv.TotalCents,
		AmountPaidCents: inv.AmountPaidCents,
		Status:          string(inv.Status),
		IssuedAt:        inv.IssuedAt.UTC(),
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode invoice %s: %w", inv.InvoiceNumber, err)
	}

	return a.store.Put(ctx, InvoiceKey(inv.OwnerID, inv.InvoiceNumber), bytes.NewReader(body), "application/json")
}

// Get reads an archived invoice back.
func (a *InvoiceArchive) Get(ctx context.Context, ownerID uuid.UUID, invoiceNumber string) (*domain.Invoice, error) {
	rc, err := a.store.Get(ctx, InvoiceKey(ownerID, invoiceNumber))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice %s: %w", invoiceNumber, err)
	}

	var doc invoiceDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode invoice %s: %w", invoiceNumber, err)
	}

	return &domain.Invoice{
		ID:              doc.ID,
		OwnerID:         doc.OwnerID,
		EstimateID:      doc.EstimateID,
		MilestoneNumber: doc.MilestoneNumber,
		InvoiceNumber:   doc.InvoiceNumber,
		Client:          doc.Client,
		Items:           doc.Items,
		SubtotalCents:   doc.SubtotalCents,
		TaxCents:        doc.TaxCents,
		DiscountCents:   doc.DiscountCents,
		ShippingCents:   doc.ShippingCents,
		TotalCents:      doc.TotalCents,
		AmountPaidCents: doc.AmountPaidCents,
		Status:          domain.InvoiceStatus(doc.Status),
		IssuedAt:        doc.IssuedAt,
	}, nil
}
