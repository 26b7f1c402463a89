package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/repository"
)

// Job type constants for lifecycle notifications
const (
	JobTypeNotifyEstimateSent    = "notify:estimate_sent"
	JobTypeNotifyDepositReceived = "notify:deposit_received"
	JobTypeNotifyInvoiceCreated  = "notify:invoice_created"
)

// EstimateNotificationPayload is used by the estimate_sent and
// deposit_received notifications. Content is rendered from the current
// estimate when the job runs.
type EstimateNotificationPayload struct {
	EstimateID uuid.UUID `json:"estimate_id"`
}

// InvoiceNotificationPayload identifies an invoice by its estimate and,
// for milestone invoices, the milestone number.
type InvoiceNotificationPayload struct {
	EstimateID      uuid.UUID `json:"estimate_id"`
	MilestoneNumber *int32    `json:"milestone_number,omitempty"`
}

// EnqueueEstimateSent enqueues the "your estimate is ready" notification.
func EnqueueEstimateSent(ctx context.Context, q repository.Querier, ownerID, estimateID uuid.UUID) (bool, error) {
	return enqueueNotify(ctx, q, ownerID, JobTypeNotifyEstimateSent,
		EstimateNotificationPayload{EstimateID: estimateID},
		fmt.Sprintf("notify:%s:%s", domain.NotifyEstimateSent, estimateID))
}

// EnqueueDepositReceived enqueues the deposit receipt notification.
func EnqueueDepositReceived(ctx context.Context, q repository.Querier, ownerID, estimateID uuid.UUID) (bool, error) {
	return enqueueNotify(ctx, q, ownerID, JobTypeNotifyDepositReceived,
		EstimateNotificationPayload{EstimateID: estimateID},
		fmt.Sprintf("notify:%s:%s", domain.NotifyDepositReceived, estimateID))
}

// EnqueueInvoiceCreated enqueues the invoice notification for inv.
func EnqueueInvoiceCreated(ctx context.Context, q repository.Querier, inv *domain.Invoice) (bool, error) {
	return enqueueNotify(ctx, q, inv.OwnerID, JobTypeNotifyInvoiceCreated,
		InvoiceNotificationPayload{EstimateID: inv.EstimateID, MilestoneNumber: inv.MilestoneNumber},
		fmt.Sprintf("notify:%s:%s:%s", domain.NotifyInvoiceCreated, inv.EstimateID, inv.InvoiceNumber))
}

func enqueueNotify(ctx context.Context, q repository.Querier, ownerID uuid.UUID, jobType string, payload any, key string) (bool, error) {
	return enqueue(ctx, q, spec{
		ownerID:        ownerID,
		jobType:        jobType,
		queue:          QueueNotify,
		payload:        payload,
		priority:       100,
		maxRetries:     3,
		timeoutSeconds: 30,
		key:            key,
	})
}

// IsNotificationJob checks if a job type is a lifecycle notification
func IsNotificationJob(jobType string) bool {
	switch jobType {
	case JobTypeNotifyEstimateSent,
		JobTypeNotifyDepositReceived,
		JobTypeNotifyInvoiceCreated:
		return true
	}
	return false
}
