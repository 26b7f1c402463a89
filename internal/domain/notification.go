package domain

import (
	"context"

	"github.com/google/uuid"
)

// Channel is a notification transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// NotificationType names the business event behind a notification.
type NotificationType string

const (
	NotifyEstimateSent    NotificationType = "estimate_sent"
	NotifyDepositReceived NotificationType = "deposit_received"
	NotifyInvoiceCreated  NotificationType = "invoice_created"
	NotifyPaymentReminder NotificationType = "payment_reminder"
)

// NotificationStatus is the logged outcome of one dispatch attempt.
type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationSkipped NotificationStatus = "skipped"
)

// Recipient is who a notification goes to, plus the estimate it concerns.
type Recipient struct {
	OwnerID    uuid.UUID
	EstimateID uuid.UUID
	Name       string
	Email      string
	Phone      string
}

// Message is channel-ready content. SMS is used for the sms channel and is
// clamped to 160 characters by the dispatcher.
type Message struct {
	Type    NotificationType
	Subject string
	HTML    string
	Text    string
	SMS     string
}

// DispatchResult records what happened on each channel.
type DispatchResult map[Channel]NotificationStatus

// Dispatcher sends a message over email and sms, logging every attempt.
type Dispatcher interface {
	// Send delivers msg on a single channel and returns the logged status.
	Send(ctx context.Context, to Recipient, channel Channel, msg Message) NotificationStatus

	// Dispatch delivers msg on every channel; one failing does not stop the other.
	Dispatch(ctx context.Context, to Recipient, msg Message) DispatchResult
}

// PaymentEventType is the gateway-agnostic kind of a payment webhook.
type PaymentEventType string

const (
	EventDepositPaid   PaymentEventType = "deposit.paid"
	EventMilestonePaid PaymentEventType = "milestone.paid"
)

// PaymentEvent is a verified payment notification from the gateway.
type PaymentEvent struct {
	ID              string
	Provider        string
	Type            PaymentEventType
	ShareToken      string
	MilestoneNumber int32
	AmountCents     int64
	PaymentRef      string
	Payload         []byte
}
