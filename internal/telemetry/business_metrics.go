package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the estimate lifecycle.
// Owner-scoped metrics carry an owner_id label for per-account dashboards.
type BusinessMetrics struct {
	// Estimates
	EstimatesCreated      *prometheus.CounterVec
	EstimatesTransitioned *prometheus.CounterVec

	// Invoices & milestones
	InvoicesCreated   *prometheus.CounterVec
	MilestonesPaid    *prometheus.CounterVec
	MilestonesOverdue prometheus.Counter

	// Reminders
	RemindersSent      *prometheus.CounterVec
	RemindersSkipped   *prometheus.CounterVec
	AIBudgetRejections prometheus.Counter

	// Notifications
	Notifications *prometheus.CounterVec

	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	// Background jobs
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// External API performance
	StripeAPILatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "bidwell"
	}

	subsystem := "business"

	return &BusinessMetrics{
		// =======================================================================
		// Estimates
		// =======================================================================
		EstimatesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "estimates_created_total",
				Help:      "Total draft estimates created",
			},
			[]string{"owner_id"},
		),
		EstimatesTransitioned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "estimates_transitioned_total",
				Help:      "Total estimate state transitions",
			},
			[]string{"owner_id", "from", "to"},
		),

		// =======================================================================
		// Invoices & Milestones
		// =======================================================================
		InvoicesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invoices_created_total",
				Help:      "Total invoices materialized from estimates",
			},
			[]string{"owner_id", "kind"}, // kind: full, milestone
		),
		MilestonesPaid: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "milestones_paid_total",
				Help:      "Total milestones marked paid",
			},
			[]string{"owner_id", "source"}, // source: webhook, owner
		),
		MilestonesOverdue: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "milestones_overdue_total",
				Help:      "Total milestones flipped to overdue",
			},
		),

		// =======================================================================
		// Reminders
		// =======================================================================
		RemindersSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reminders_sent_total",
				Help:      "Total payment reminders dispatched",
			},
			[]string{"tone", "personalized"},
		),
		RemindersSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reminders_skipped_total",
				Help:      "Total reminders not sent",
			},
			[]string{"reason"}, // reason: already_sent, settled
		),
		AIBudgetRejections: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ai_budget_rejections_total",
				Help:      "Total reminders that fell back to a template because the AI budget was spent",
			},
		),

		// =======================================================================
		// Notifications
		// =======================================================================
		Notifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_total",
				Help:      "Total notification attempts by outcome",
			},
			[]string{"channel", "status"},
		),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_received_total",
				Help:      "Total verified payment webhooks received",
			},
			[]string{"provider", "event_type"},
		),
		WebhookProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_processed_total",
				Help:      "Total payment webhooks applied",
			},
			[]string{"provider", "event_type"},
		),
		WebhookFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_failed_total",
				Help:      "Total payment webhooks that could not be applied",
			},
			[]string{"provider", "event_type", "reason"},
		),
		WebhookLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duration_seconds",
				Help:      "Payment webhook handling duration",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"provider", "event_type"},
		),

		// =======================================================================
		// Background Jobs
		// =======================================================================
		JobsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_processed_total",
				Help:      "Total background jobs completed",
			},
			[]string{"job_type"},
		),
		JobsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_failed_total",
				Help:      "Total background job attempts that failed",
			},
			[]string{"job_type"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_duration_seconds",
				Help:      "Background job processing duration",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"job_type"},
		),

		// =======================================================================
		// External APIs
		// =======================================================================
		StripeAPILatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stripe_api_duration_seconds",
				Help:      "Stripe API call duration",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
	}
}

// Global instance for easy access from services and handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}

// The recorders below are safe to call before InitBusinessMetrics; tests
// never register collectors.

func (m *BusinessMetrics) EstimateCreated(ownerID string) {
	if m == nil {
		return
	}
	m.EstimatesCreated.WithLabelValues(ownerID).Inc()
}

func (m *BusinessMetrics) EstimateTransitioned(ownerID, from, to string) {
	if m == nil {
		return
	}
	m.EstimatesTransitioned.WithLabelValues(ownerID, from, to).Inc()
}

func (m *BusinessMetrics) InvoiceCreated(ownerID string, milestone bool) {
	if m == nil {
		return
	}
	kind := "full"
	if milestone {
		kind = "milestone"
	}
	m.InvoicesCreated.WithLabelValues(ownerID, kind).Inc()
}

func (m *BusinessMetrics) MilestonePaid(ownerID, source string) {
	if m == nil {
		return
	}
	m.MilestonesPaid.WithLabelValues(ownerID, source).Inc()
}

func (m *BusinessMetrics) MilestonesMarkedOverdue(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MilestonesOverdue.Add(float64(n))
}

func (m *BusinessMetrics) ReminderSent(tone string, personalized bool) {
	if m == nil {
		return
	}
	m.RemindersSent.WithLabelValues(tone, strconv.FormatBool(personalized)).Inc()
}

func (m *BusinessMetrics) ReminderSkipped(reason string) {
	if m == nil {
		return
	}
	m.RemindersSkipped.WithLabelValues(reason).Inc()
}

func (m *BusinessMetrics) AIBudgetRejected() {
	if m == nil {
		return
	}
	m.AIBudgetRejections.Inc()
}

func (m *BusinessMetrics) Notification(channel, status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(channel, status).Inc()
}

// RecordWebhook counts a verified webhook and its outcome. outcome is
// "processed", "duplicate" or a failure reason.
func (m *BusinessMetrics) RecordWebhook(provider, eventType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(provider, eventType).Inc()
	switch outcome {
	case "processed", "duplicate":
		m.WebhookProcessed.WithLabelValues(provider, eventType).Inc()
	default:
		m.WebhookFailed.WithLabelValues(provider, eventType, outcome).Inc()
	}
	m.WebhookLatency.WithLabelValues(provider, eventType).Observe(d.Seconds())
}

func (m *BusinessMetrics) RecordJob(jobType string, err error, d time.Duration) {
	if m == nil {
		return
	}
	if err != nil {
		m.JobsFailed.WithLabelValues(jobType).Inc()
	} else {
		m.JobsProcessed.WithLabelValues(jobType).Inc()
	}
	m.JobDuration.WithLabelValues(jobType).Observe(d.Seconds())
}

func (m *BusinessMetrics) RecordStripeCall(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.StripeAPILatency.WithLabelValues(operation).Observe(d.Seconds())
}
