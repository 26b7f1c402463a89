package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/bidwell/internal/billing"
	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/handler"
	"github.com/dukerupert/bidwell/internal/telemetry"
)

// ShareHandler serves the public share-link routes. The share token is the
// only credential; drafts are never exposed.
type ShareHandler struct {
	estimates domain.EstimateService
	gateway   billing.Gateway
	baseURL   string
	logger    *slog.Logger
	now       func() time.Time
}

// NewShareHandler creates a new share-link handler. baseURL is used to build
// the checkout return URLs.
func NewShareHandler(estimates domain.EstimateService, gateway billing.Gateway, baseURL string, logger *slog.Logger) *ShareHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShareHandler{
		estimates: estimates,
		gateway:   gateway,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// View handles GET /e/{token}
func (h *ShareHandler) View(w http.ResponseWriter, r *http.Request) {
	detail, err := h.estimates.GetByShareToken(r.Context(), r.PathValue("token"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newShareView(detail))
}

// Accept handles POST /e/{token}/accept. Estimates with a deposit are
// accepted by paying it instead.
func (h *ShareHandler) Accept(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if _, err := h.estimates.Accept(r.Context(), token); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	detail, err := h.estimates.GetByShareToken(r.Context(), token)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newShareView(detail))
}

type checkoutResponse struct {
	CheckoutURL     string `json:"checkout_url"`
	Event           string `json:"event"`
	AmountCents     int64  `json:"amount_cents"`
	MilestoneNumber int32  `json:"milestone_number,omitempty"`
}

// Pay handles POST /e/{token}/pay. It opens a hosted checkout for whatever
// is due next: the deposit if one is outstanding, otherwise the lowest
// numbered unpaid milestone.
func (h *ShareHandler) Pay(w http.ResponseWriter, r *http.Request) {
	const op = "api.pay"
	ctx := r.Context()
	token := r.PathValue("token")

	detail, err := h.estimates.GetByShareToken(ctx, token)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	params, err := h.nextPayment(op, detail)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	start := time.Now()
	session, err := h.gateway.CreateCheckoutSession(ctx, params)
	telemetry.Business.RecordStripeCall("checkout_session_create", time.Since(start))
	switch {
	case errors.Is(err, billing.ErrAmountTooSmall):
		handler.ErrorResponse(w, r, domain.Invalid(op, "Amount is below the minimum card payment"))
		return
	case err != nil:
		handler.ErrorResponse(w, r, domain.Internal(err, op, "failed to create checkout session"))
		return
	}

	h.logger.InfoContext(ctx, "checkout session created",
		"estimate_id", detail.Estimate.ID,
		"event", params.Event,
		"milestone_number", params.MilestoneNumber,
		"session_id", session.ID,
	)

	handler.JSON(w, http.StatusOK, checkoutResponse{
		CheckoutURL:     session.URL,
		Event:           string(params.Event),
		AmountCents:     params.AmountCents,
		MilestoneNumber: params.MilestoneNumber,
	})
}

func (h *ShareHandler) nextPayment(op string, d *domain.EstimateDetail) (billing.CheckoutParams, error) {
	e := d.Estimate
	if e.Status == domain.EstimateCancelled {
		return billing.CheckoutParams{}, domain.Errorf(domain.ECONFLICT, op, "This estimate is no longer open for payment")
	}

	params := billing.CheckoutParams{
		OwnerID:       e.OwnerID.String(),
		ShareToken:    e.ShareToken,
		CustomerEmail: e.Client.Email,
		SuccessURL:    h.shareURL(e.ShareToken, "paid"),
		CancelURL:     h.shareURL(e.ShareToken, "cancelled"),
	}

	switch {
	case e.Status == domain.EstimateSent && e.RequiresDeposit() && e.DepositPaidAt == nil:
		params.Event = domain.EventDepositPaid
		params.AmountCents = e.DepositCents
		params.Description = fmt.Sprintf("Deposit for estimate #%d", e.EstimateNumber)

	default:
		m := firstUnpaid(d.Milestones)
		if m == nil || e.Status == domain.EstimateDraft {
			return billing.CheckoutParams{}, domain.Errorf(domain.ECONFLICT, op, "Nothing is currently due on this estimate")
		}
		params.Event = domain.EventMilestonePaid
		params.MilestoneNumber = m.MilestoneNumber
		params.AmountCents = m.AmountCents
		params.Description = fmt.Sprintf("Estimate #%d, milestone %d: %s", e.EstimateNumber, m.MilestoneNumber, m.Description)
	}

	// One key per payable target per day; repeated clicks reuse the session.
	params.IdempotencyKey = fmt.Sprintf("checkout:%s:%s:%d:%s",
		e.ShareToken, params.Event, params.MilestoneNumber, h.now().UTC().Format("2006-01-02"))
	return params, nil
}

func (h *ShareHandler) shareURL(token, result string) string {
	return h.baseURL + "/e/" + url.PathEscape(token) + "?payment=" + result
}

func firstUnpaid(ms []domain.Milestone) *domain.Milestone {
	sorted := make([]domain.Milestone, len(ms))
	copy(sorted, ms)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MilestoneNumber < sorted[j].MilestoneNumber })
	for i := range sorted {
		if sorted[i].Status.Unpaid() {
			return &sorted[i]
		}
	}
	return nil
}
