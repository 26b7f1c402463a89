package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/handler"
)

// ReminderPreferencesHandler serves GET and PUT /api/reminder-preferences.
type ReminderPreferencesHandler struct {
	reminders domain.ReminderService
	now       func() time.Time
}

// NewReminderPreferencesHandler creates a new reminder preferences handler
func NewReminderPreferencesHandler(reminders domain.ReminderService) *ReminderPreferencesHandler {
	return &ReminderPreferencesHandler{
		reminders: reminders,
		now:       time.Now,
	}
}

type preferencesRequest struct {
	Tone                 domain.Tone `json:"tone"`
	ScheduleDays         []int32     `json:"schedule_days"`
	AutoSend             bool        `json:"auto_send"`
	MaxRemindersPerEst   int32       `json:"max_reminders_per_estimate"`
	AIEnabled            bool        `json:"ai_enabled"`
	AIMonthlyBudgetCents int64       `json:"ai_monthly_budget_cents"`
}

// Get returns the owner's preferences, or the defaults if none were saved.
func (h *ReminderPreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.reminders.GetPreferences(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newPreferencesView(prefs, h.now()))
}

// Update replaces the owner's preferences.
func (h *ReminderPreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := handler.DecodeJSON(r, "api.update_reminder_preferences", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	prefs, err := h.reminders.UpdatePreferences(r.Context(), domain.UpdateReminderPreferencesParams{
		Tone:                 req.Tone,
		ScheduleDays:         req.ScheduleDays,
		AutoSend:             req.AutoSend,
		MaxRemindersPerEst:   req.MaxRemindersPerEst,
		AIEnabled:            req.AIEnabled,
		AIMonthlyBudgetCents: req.AIMonthlyBudgetCents,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newPreferencesView(prefs, h.now()))
}
