package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Estimate struct {
	ID             pgtype.UUID        `json:"id"`
	OwnerID        pgtype.UUID        `json:"owner_id"`
	EstimateNumber int32              `json:"estimate_number"`
	ClientName     string             `json:"client_name"`
	ClientEmail    string             `json:"client_email"`
	ClientPhone    string             `json:"client_phone"`
	Items          []byte             `json:"items"`
	TaxRate        pgtype.Numeric     `json:"tax_rate"`
	DiscountCents  int64              `json:"discount_cents"`
	ShippingCents  int64              `json:"shipping_cents"`
	SubtotalCents  int64              `json:"subtotal_cents"`
	TaxCents       int64              `json:"tax_cents"`
	TotalCents     int64              `json:"total_cents"`
	DepositType    string             `json:"deposit_type"`
	DepositValue   pgtype.Numeric     `json:"deposit_value"`
	DepositCents   int64              `json:"deposit_cents"`
	Status         string             `json:"status"`
	ShareToken     string             `json:"share_token"`
	SentAt         pgtype.Timestamptz `json:"sent_at"`
	AcceptedAt     pgtype.Timestamptz `json:"accepted_at"`
	DepositPaidAt  pgtype.Timestamptz `json:"deposit_paid_at"`
	InvoicedAt     pgtype.Timestamptz `json:"invoiced_at"`
	CancelledAt    pgtype.Timestamptz `json:"cancelled_at"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type Invoice struct {
	ID              pgtype.UUID        `json:"id"`
	OwnerID         pgtype.UUID        `json:"owner_id"`
	EstimateID      pgtype.UUID        `json:"estimate_id"`
	MilestoneNumber pgtype.Int4        `json:"milestone_number"`
	InvoiceNumber   string             `json:"invoice_number"`
	ClientName      string             `json:"client_name"`
	ClientEmail     string             `json:"client_email"`
	ClientPhone     string             `json:"client_phone"`
	Items           []byte             `json:"items"`
	SubtotalCents   int64              `json:"subtotal_cents"`
	TaxCents        int64              `json:"tax_cents"`
	DiscountCents   int64              `json:"discount_cents"`
	ShippingCents   int64              `json:"shipping_cents"`
	TotalCents      int64              `json:"total_cents"`
	AmountPaidCents int64              `json:"amount_paid_cents"`
	Status          string             `json:"status"`
	IssuedAt        pgtype.Timestamptz `json:"issued_at"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
	UpdatedAt       pgtype.Timestamptz `json:"updated_at"`
}

type Job struct {
	ID             pgtype.UUID        `json:"id"`
	TenantID       pgtype.UUID        `json:"tenant_id"`
	JobType        string             `json:"job_type"`
	Queue          string             `json:"queue"`
	Payload        []byte             `json:"payload"`
	Status         string             `json:"status"`
	Priority       int32              `json:"priority"`
	RetryCount     int32              `json:"retry_count"`
	MaxRetries     int32              `json:"max_retries"`
	ScheduledAt    pgtype.Timestamptz `json:"scheduled_at"`
	StartedAt      pgtype.Timestamptz `json:"started_at"`
	CompletedAt    pgtype.Timestamptz `json:"completed_at"`
	FailedAt       pgtype.Timestamptz `json:"failed_at"`
	TimeoutSeconds int32              `json:"timeout_seconds"`
	IdempotencyKey pgtype.Text        `json:"idempotency_key"`
	WorkerID       pgtype.Text        `json:"worker_id"`
	ErrorMessage   pgtype.Text        `json:"error_message"`
	ErrorDetails   []byte             `json:"error_details"`
	Metadata       []byte             `json:"metadata"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type Milestone struct {
	ID              pgtype.UUID        `json:"id"`
	OwnerID         pgtype.UUID        `json:"owner_id"`
	EstimateID      pgtype.UUID        `json:"estimate_id"`
	MilestoneNumber int32              `json:"milestone_number"`
	Description     string             `json:"description"`
	Percentage      pgtype.Numeric     `json:"percentage"`
	AmountCents     int64              `json:"amount_cents"`
	DueDate         pgtype.Date        `json:"due_date"`
	Status          string             `json:"status"`
	PaidAt          pgtype.Timestamptz `json:"paid_at"`
	PaymentRef      pgtype.Text        `json:"payment_ref"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
	UpdatedAt       pgtype.Timestamptz `json:"updated_at"`
}

type NotificationLog struct {
	ID                pgtype.UUID        `json:"id"`
	CorrelationID     string             `json:"correlation_id"`
	OwnerID           pgtype.UUID        `json:"owner_id"`
	EstimateID        pgtype.UUID        `json:"estimate_id"`
	Channel           string             `json:"channel"`
	NotificationType  string             `json:"notification_type"`
	Recipient         string             `json:"recipient"`
	Status            string             `json:"status"`
	Error             pgtype.Text        `json:"error"`
	ProviderMessageID pgtype.Text        `json:"provider_message_id"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
}

type Owner struct {
	ID                 pgtype.UUID        `json:"id"`
	BusinessName       string             `json:"business_name"`
	Email              string             `json:"email"`
	Phone              pgtype.Text        `json:"phone"`
	NextEstimateNumber int32              `json:"next_estimate_number"`
	CreatedAt          pgtype.Timestamptz `json:"created_at"`
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}

type PaymentEvent struct {
	ID          pgtype.UUID        `json:"id"`
	Provider    string             `json:"provider"`
	EventID     string             `json:"event_id"`
	EventType   string             `json:"event_type"`
	Payload     []byte             `json:"payload"`
	Attempts    int32              `json:"attempts"`
	ProcessedAt pgtype.Timestamptz `json:"processed_at"`
	LastError   pgtype.Text        `json:"last_error"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type ReminderLog struct {
	ID           pgtype.UUID        `json:"id"`
	OwnerID      pgtype.UUID        `json:"owner_id"`
	EstimateID   pgtype.UUID        `json:"estimate_id"`
	TargetType   string             `json:"target_type"`
	TargetID     pgtype.UUID        `json:"target_id"`
	DayOffset    int32              `json:"day_offset"`
	Tone         string             `json:"tone"`
	Status       string             `json:"status"`
	Personalized bool               `json:"personalized"`
	Error        pgtype.Text        `json:"error"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type ReminderPreference struct {
	OwnerID                 pgtype.UUID        `json:"owner_id"`
	Tone                    string             `json:"tone"`
	ScheduleDays            []int32            `json:"schedule_days"`
	AutoSend                bool               `json:"auto_send"`
	MaxRemindersPerEstimate int32              `json:"max_reminders_per_estimate"`
	AiEnabled               bool               `json:"ai_enabled"`
	AiMonthlyBudgetCents    int64              `json:"ai_monthly_budget_cents"`
	AiUsageCents            int64              `json:"ai_usage_cents"`
	AiUsagePeriod           pgtype.Date        `json:"ai_usage_period"`
	CreatedAt               pgtype.Timestamptz `json:"created_at"`
	UpdatedAt               pgtype.Timestamptz `json:"updated_at"`
}
