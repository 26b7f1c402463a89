// Package api serves the JSON API: owner routes under /api and the public
// share-link routes under /e.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/handler"
)

// EstimateHandler serves the owner's estimate routes.
type EstimateHandler struct {
	estimates  domain.EstimateService
	conversion domain.ConversionService
	milestones domain.MilestoneService
	logger     *slog.Logger
	now        func() time.Time
}

// NewEstimateHandler creates a new estimate handler
func NewEstimateHandler(
	estimates domain.EstimateService,
	conversion domain.ConversionService,
	milestones domain.MilestoneService,
	logger *slog.Logger,
) *EstimateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EstimateHandler{
		estimates:  estimates,
		conversion: conversion,
		milestones: milestones,
		logger:     logger,
		now:        time.Now,
	}
}

type estimateRequest struct {
	Client        domain.Client      `json:"client"`
	Items         []domain.LineItem  `json:"items"`
	TaxRate       decimal.Decimal    `json:"tax_rate"`
	DiscountCents int64              `json:"discount_cents"`
	ShippingCents int64              `json:"shipping_cents"`
	Deposit       domain.DepositSpec `json:"deposit"`
}

type planStageRequest struct {
	Description string           `json:"description"`
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
	AmountCents *int64           `json:"amount_cents,omitempty"`
	DueInDays   *int             `json:"due_in_days,omitempty"`
}

type planRequest struct {
	Stages []planStageRequest `json:"stages"`
}

// Create handles POST /api/estimates
func (h *EstimateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := handler.DecodeJSON(r, "api.create_estimate", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	e, err := h.estimates.CreateEstimate(r.Context(), domain.CreateEstimateParams{
		Client:        req.Client,
		Items:         req.Items,
		TaxRate:       req.TaxRate,
		DiscountCents: req.DiscountCents,
		ShippingCents: req.ShippingCents,
		Deposit:       req.Deposit,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusCreated, newEstimateView(e))
}

// Update handles PUT /api/estimates/{id}
func (h *EstimateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := handler.DecodeJSON(r, "api.update_estimate", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	e, err := h.estimates.UpdateDraft(r.Context(), domain.UpdateEstimateParams{
		EstimateID:    r.PathValue("id"),
		Client:        req.Client,
		Items:         req.Items,
		TaxRate:       req.TaxRate,
		DiscountCents: req.DiscountCents,
		ShippingCents: req.ShippingCents,
		Deposit:       req.Deposit,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, newEstimateView(e))
}

// Get handles GET /api/estimates/{id}
func (h *EstimateHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.estimates.GetEstimate(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newEstimateDetailView(detail))
}

// ListStale handles GET /api/estimates/stale
func (h *EstimateHandler) ListStale(w http.ResponseWriter, r *http.Request) {
	stale, err := h.estimates.ListStale(r.Context(), h.now())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]estimateView, 0, len(stale))
	for i := range stale {
		out = append(out, newEstimateView(&stale[i]))
	}
	handler.JSON(w, http.StatusOK, map[string]any{"estimates": out})
}

// Send handles POST /api/estimates/{id}/send
func (h *EstimateHandler) Send(w http.ResponseWriter, r *http.Request) {
	e, err := h.estimates.Send(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "estimate sent", "estimate_id", e.ID, "deposit_cents", e.DepositCents)
	handler.JSON(w, http.StatusOK, newEstimateView(e))
}

// Cancel handles POST /api/estimates/{id}/cancel
func (h *EstimateHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	e, err := h.estimates.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newEstimateView(e))
}

// Convert handles POST /api/estimates/{id}/convert. Converting an already
// invoiced estimate returns its existing invoice.
func (h *EstimateHandler) Convert(w http.ResponseWriter, r *http.Request) {
	inv, err := h.conversion.Convert(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newInvoiceView(inv))
}

// CreatePlan handles POST /api/estimates/{id}/milestones
func (h *EstimateHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := handler.DecodeJSON(r, "api.create_plan", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	stages := make([]domain.PlanStage, 0, len(req.Stages))
	for _, s := range req.Stages {
		stages = append(stages, domain.PlanStage{
			Description: s.Description,
			Percentage:  s.Percentage,
			AmountCents: s.AmountCents,
			DueInDays:   s.DueInDays,
		})
	}

	plan, err := h.milestones.CreatePlan(r.Context(), r.PathValue("id"), stages)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, map[string]any{"milestones": newMilestoneViews(plan)})
}
