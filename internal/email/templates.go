package email

import "time"

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// EstimateSentEmail carries the share link to a client.
type EstimateSentEmail struct {
	BusinessName   string
	ClientName     string
	EstimateNumber int32
	Total          string
	Deposit        string // empty when no deposit is required
	ShareURL       string
}

func (e EstimateSentEmail) Subject() string {
	return "Your estimate from " + e.BusinessName
}

func (e EstimateSentEmail) TemplateName() string {
	return "estimate_sent.html"
}

// DepositReceivedEmail confirms a deposit payment to the client.
type DepositReceivedEmail struct {
	BusinessName   string
	ClientName     string
	EstimateNumber int32
	Amount         string
	PaidAt         time.Time
}

func (e DepositReceivedEmail) Subject() string {
	return "Deposit received - " + e.BusinessName
}

func (e DepositReceivedEmail) TemplateName() string {
	return "deposit_received.html"
}

// InvoiceCreatedEmail delivers a new invoice.
type InvoiceCreatedEmail struct {
	BusinessName  string
	ClientName    string
	InvoiceNumber string
	Items         []InvoiceLine
	Subtotal      string
	Tax           string
	Discount      string // empty when zero
	Shipping      string // empty when zero
	Total         string
	AmountPaid    string // empty when nothing has been paid
	BalanceDue    string
	ShareURL      string
}

func (e InvoiceCreatedEmail) Subject() string {
	return "Invoice " + e.InvoiceNumber + " from " + e.BusinessName
}

func (e InvoiceCreatedEmail) TemplateName() string {
	return "invoice_created.html"
}

// PaymentReminderEmail wraps an already rendered reminder body.
type PaymentReminderEmail struct {
	BusinessName string
	Heading      string
	Paragraphs   []string
	PaymentURL   string
	SubjectLine  string
}

func (e PaymentReminderEmail) Subject() string {
	return e.SubjectLine
}

func (e PaymentReminderEmail) TemplateName() string {
	return "payment_reminder.html"
}

// InvoiceLine is one row of an invoice email.
type InvoiceLine struct {
	Description string
	Quantity    string
	UnitRate    string
}
