package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/bidwell/internal/billing"
	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/handler"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/telemetry"
)

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

// Webhook outcomes reported to metrics.
const (
	outcomeProcessed = "processed"
	outcomeDuplicate = "duplicate"
	outcomeIgnored   = "ignored"
	outcomeRejected  = "rejected"
	outcomeError     = "error"
)

// StripeHandler receives payment webhooks and applies them to estimates and
// milestones exactly once.
type StripeHandler struct {
	gateway    billing.Gateway
	events     repository.Querier
	estimates  domain.EstimateService
	milestones domain.MilestoneService
	logger     *slog.Logger
}

// NewStripeHandler creates a new Stripe webhook handler
func NewStripeHandler(
	gateway billing.Gateway,
	events repository.Querier,
	estimates domain.EstimateService,
	milestones domain.MilestoneService,
	logger *slog.Logger,
) *StripeHandler {
	return &StripeHandler{
		gateway:    gateway,
		events:     events,
		estimates:  estimates,
		milestones: milestones,
		logger:     logger.With("handler", "stripe_webhook"),
	}
}

// HandleWebhook processes incoming Stripe webhook events.
//
// Every verified event is recorded before it is applied. A redelivery of an
// event that was already processed is acknowledged without side effects.
// Only internal failures answer 5xx so Stripe retries; business rejections
// (amount mismatch, unknown share token, closed estimate) are acknowledged
// and kept in payment_events with their last error.
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/webhooks/stripe
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const op = "webhook.stripe"
	start := time.Now()
	ctx := r.Context()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, op, "Error reading request body"))
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, op, "Missing signature"))
		return
	}

	event, err := h.gateway.ParseWebhook(payload, signature)
	switch {
	case errors.Is(err, billing.ErrInvalidWebhookSignature):
		h.logger.WarnContext(ctx, "webhook signature verification failed")
		handler.ErrorResponse(w, r, domain.Unauthorized(op, "Invalid signature"))
		return
	case errors.Is(err, billing.ErrMalformedEvent):
		// Signed by Stripe but unusable; retrying will not fix it.
		h.logger.ErrorContext(ctx, "malformed payment event", "error", err)
		telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{"payload_bytes": len(payload)})
		telemetry.Business.RecordWebhook("stripe", "unknown", outcomeRejected, time.Since(start))
		acknowledge(w)
		return
	case err != nil:
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, op, "Invalid webhook payload"))
		return
	}

	logger := h.logger.With("event_id", event.ID, "event_type", event.Type)
	outcome, err := h.process(ctx, logger, event, payload)
	telemetry.Business.RecordWebhook(event.Provider, event.Type, outcome, time.Since(start))

	if outcome == outcomeError {
		handler.ErrorResponse(w, r, domain.Internal(err, op, "payment event "+event.ID+" not applied"))
		return
	}
	acknowledge(w)
}

func (h *StripeHandler) process(ctx context.Context, logger *slog.Logger, event *billing.WebhookEvent, payload []byte) (string, error) {
	row, err := h.events.RecordPaymentEvent(ctx, repository.RecordPaymentEventParams{
		Provider:  event.Provider,
		EventID:   event.ID,
		EventType: event.Type,
		Payload:   payload,
	})
	if err != nil {
		return outcomeError, err
	}

	if row.ProcessedAt.Valid {
		logger.InfoContext(ctx, "duplicate payment event", "attempts", row.Attempts)
		return outcomeDuplicate, nil
	}

	if event.Payment == nil {
		logger.DebugContext(ctx, "ignoring unhandled event type")
		h.markProcessed(ctx, logger, row.ID)
		return outcomeIgnored, nil
	}

	err = h.apply(ctx, event.Payment)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "payment event applied",
			"payment_type", event.Payment.Type,
			"amount_cents", event.Payment.AmountCents,
		)
		h.markProcessed(ctx, logger, row.ID)
		return outcomeProcessed, nil

	case domain.ErrorCode(err) == domain.EINTERNAL:
		h.markFailed(ctx, logger, row.ID, err)
		return outcomeError, err

	default:
		logger.WarnContext(ctx, "payment event rejected",
			"code", domain.ErrorCode(err),
			"error", err,
		)
		h.markFailed(ctx, logger, row.ID, err)
		return outcomeRejected, nil
	}
}

func (h *StripeHandler) apply(ctx context.Context, p *domain.PaymentEvent) error {
	switch p.Type {
	case domain.EventDepositPaid:
		_, err := h.estimates.ConfirmDeposit(ctx, domain.DepositPayment{
			ShareToken:  p.ShareToken,
			AmountCents: p.AmountCents,
			PaymentRef:  p.PaymentRef,
		})
		return err
	case domain.EventMilestonePaid:
		_, err := h.milestones.RecordPayment(ctx, domain.MilestonePayment{
			ShareToken:      p.ShareToken,
			MilestoneNumber: p.MilestoneNumber,
			AmountCents:     p.AmountCents,
			PaymentRef:      p.PaymentRef,
		})
		return err
	default:
		return domain.Invalid("webhook.apply", "unsupported payment event "+string(p.Type))
	}
}

func (h *StripeHandler) markProcessed(ctx context.Context, logger *slog.Logger, id pgtype.UUID) {
	if err := h.events.MarkPaymentEventProcessed(ctx, id); err != nil {
		logger.ErrorContext(ctx, "failed to mark payment event processed", "error", err)
	}
}

func (h *StripeHandler) markFailed(ctx context.Context, logger *slog.Logger, id pgtype.UUID, cause error) {
	err := h.events.MarkPaymentEventFailed(ctx, repository.MarkPaymentEventFailedParams{
		ID:        id,
		LastError: pgtype.Text{String: cause.Error(), Valid: true},
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to mark payment event failed", "error", err)
	}
}

func acknowledge(w http.ResponseWriter) {
	handler.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
