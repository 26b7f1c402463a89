package domain

//go:generate mockgen -source=invoice.go -destination=mock/invoice.go -package=mock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus is the only mutable part of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceSent          InvoiceStatus = "sent"
	InvoicePaid          InvoiceStatus = "paid"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
)

// Invoice is an immutable snapshot of an estimate (or one of its
// milestones) taken at conversion time.
type Invoice struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	EstimateID      uuid.UUID
	MilestoneNumber *int32
	InvoiceNumber   string
	Client          Client
	Items           []LineItem
	SubtotalCents   int64
	TaxCents        int64
	DiscountCents   int64
	ShippingCents   int64
	TotalCents      int64
	AmountPaidCents int64
	Status          InvoiceStatus
	IssuedAt        time.Time
	CreatedAt       time.Time
}

// IsMilestoneInvoice reports whether the invoice bills a single milestone.
func (i *Invoice) IsMilestoneInvoice() bool {
	return i.MilestoneNumber != nil
}

// InvoiceNumber formats the human-readable number of a full invoice.
func InvoiceNumber(estimateNumber int32) string {
	return fmt.Sprintf("INV-%04d", estimateNumber)
}

// MilestoneInvoiceNumber formats the number of a milestone invoice,
// e.g. INV-0042-M2.
func MilestoneInvoiceNumber(estimateNumber, milestoneNumber int32) string {
	return fmt.Sprintf("INV-%04d-M%d", estimateNumber, milestoneNumber)
}

// ConversionService materializes invoices from estimates and milestones.
type ConversionService interface {
	// Convert snapshots an accepted or deposit-paid estimate into an invoice.
	// Converting an invoiced estimate returns its existing invoice.
	Convert(ctx context.Context, estimateID string) (*Invoice, error)

	// ConvertMilestone invoices a single milestone for exactly its amount.
	// Converting the same milestone twice returns the first invoice.
	ConvertMilestone(ctx context.Context, milestoneID string) (*Invoice, error)
}
