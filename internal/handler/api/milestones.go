package api

import (
	"net/http"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/handler"
)

// MilestoneHandler serves owner actions on individual milestones.
type MilestoneHandler struct {
	milestones domain.MilestoneService
	conversion domain.ConversionService
}

// NewMilestoneHandler creates a new milestone handler
func NewMilestoneHandler(milestones domain.MilestoneService, conversion domain.ConversionService) *MilestoneHandler {
	return &MilestoneHandler{
		milestones: milestones,
		conversion: conversion,
	}
}

type markPaidRequest struct {
	PaymentRef string `json:"payment_ref"`
}

// MarkPaid handles POST /api/milestones/{id}/mark-paid for payments taken
// outside Stripe (cash, check). The body is optional.
func (h *MilestoneHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if r.ContentLength != 0 {
		if err := handler.DecodeJSON(r, "api.mark_paid", &req); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}

	m, err := h.milestones.MarkPaid(r.Context(), r.PathValue("id"), req.PaymentRef)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newMilestoneView(m))
}

// Invoice handles POST /api/milestones/{id}/invoice
func (h *MilestoneHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.conversion.ConvertMilestone(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newInvoiceView(inv))
}
