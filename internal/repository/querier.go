package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	ClaimNextJob(ctx context.Context, arg ClaimNextJobParams) (Job, error)
	CompleteJob(ctx context.Context, id pgtype.UUID) error
	CountMilestones(ctx context.Context, estimateID pgtype.UUID) (int64, error)
	CountReminderLogs(ctx context.Context, estimateID pgtype.UUID) (int64, error)
	CreateEstimate(ctx context.Context, arg CreateEstimateParams) (Estimate, error)
	CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error)
	CreateMilestone(ctx context.Context, arg CreateMilestoneParams) (Milestone, error)
	CreateNotificationLog(ctx context.Context, arg CreateNotificationLogParams) (NotificationLog, error)
	DeleteFinishedJobs(ctx context.Context, before pgtype.Timestamptz) (int64, error)
	EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error)
	FailJob(ctx context.Context, arg FailJobParams) (Job, error)
	GetEstimate(ctx context.Context, arg GetEstimateParams) (Estimate, error)
	GetEstimateByShareToken(ctx context.Context, shareToken string) (Estimate, error)
	GetFullInvoiceForEstimate(ctx context.Context, estimateID pgtype.UUID) (Invoice, error)
	GetMilestone(ctx context.Context, arg GetMilestoneParams) (Milestone, error)
	GetMilestoneByNumber(ctx context.Context, arg GetMilestoneByNumberParams) (Milestone, error)
	GetMilestoneInvoice(ctx context.Context, arg GetMilestoneInvoiceParams) (Invoice, error)
	GetOwner(ctx context.Context, id pgtype.UUID) (Owner, error)
	GetReminderPreferences(ctx context.Context, ownerID pgtype.UUID) (ReminderPreference, error)
	IncrementAIUsage(ctx context.Context, arg IncrementAIUsageParams) (int64, error)
	InsertReminderLog(ctx context.Context, arg InsertReminderLogParams) (ReminderLog, error)
	ListEstimatesAwaitingDeposit(ctx context.Context) ([]Estimate, error)
	ListInvoicesByEstimate(ctx context.Context, estimateID pgtype.UUID) ([]Invoice, error)
	ListMilestonesByEstimate(ctx context.Context, estimateID pgtype.UUID) ([]Milestone, error)
	ListStaleEstimates(ctx context.Context, arg ListStaleEstimatesParams) ([]Estimate, error)
	ListUnpaidMilestonesDue(ctx context.Context, today pgtype.Date) ([]Milestone, error)
	LockEstimate(ctx context.Context, id pgtype.UUID) (pgtype.UUID, error)
	MarkMilestonePaid(ctx context.Context, arg MarkMilestonePaidParams) (Milestone, error)
	MarkOverdueMilestones(ctx context.Context, today pgtype.Date) (int64, error)
	MarkPaymentEventFailed(ctx context.Context, arg MarkPaymentEventFailedParams) error
	MarkPaymentEventProcessed(ctx context.Context, id pgtype.UUID) error
	NextEstimateNumber(ctx context.Context, ownerID pgtype.UUID) (int32, error)
	RecordPaymentEvent(ctx context.Context, arg RecordPaymentEventParams) (PaymentEvent, error)
	ReminderLogExists(ctx context.Context, arg ReminderLogExistsParams) (bool, error)
	TransitionEstimateStatus(ctx context.Context, arg TransitionEstimateStatusParams) (Estimate, error)
	UpdateEstimateDraft(ctx context.Context, arg UpdateEstimateDraftParams) (Estimate, error)
	UpdateMilestoneAmount(ctx context.Context, arg UpdateMilestoneAmountParams) (Milestone, error)
	UpdateReminderLogStatus(ctx context.Context, arg UpdateReminderLogStatusParams) error
	UpsertReminderPreferences(ctx context.Context, arg UpsertReminderPreferencesParams) (ReminderPreference, error)
}

var _ Querier = (*Queries)(nil)
