package routes

import (
	"github.com/dukerupert/bidwell/internal/router"
)

// RegisterOwnerRoutes registers the owner API. Every route requires the
// X-Owner-ID header to resolve to an existing owner.
func RegisterOwnerRoutes(r *router.Router, deps OwnerDeps) {
	owner := r.Group(deps.Middleware...)

	// Estimates
	owner.Post("/api/estimates", deps.EstimateHandler.Create)
	owner.Get("/api/estimates/stale", deps.EstimateHandler.ListStale)
	owner.Get("/api/estimates/{id}", deps.EstimateHandler.Get)
	owner.Put("/api/estimates/{id}", deps.EstimateHandler.Update)
	owner.Post("/api/estimates/{id}/send", deps.EstimateHandler.Send)
	owner.Post("/api/estimates/{id}/cancel", deps.EstimateHandler.Cancel)
	owner.Post("/api/estimates/{id}/convert", deps.EstimateHandler.Convert)
	owner.Post("/api/estimates/{id}/milestones", deps.EstimateHandler.CreatePlan)

	// Milestones
	owner.Post("/api/milestones/{id}/mark-paid", deps.MilestoneHandler.MarkPaid)
	owner.Post("/api/milestones/{id}/invoice", deps.MilestoneHandler.Invoice)

	// Reminder settings
	owner.Get("/api/reminder-preferences", deps.PreferencesHandler.Get)
	owner.Put("/api/reminder-preferences", deps.PreferencesHandler.Update)
}

// RegisterShareRoutes registers the public routes behind an estimate's
// share link. The token is the only credential, so these are rate limited.
func RegisterShareRoutes(r *router.Router, deps ShareDeps) {
	share := r
	if deps.RateLimit != nil {
		share = r.Group(deps.RateLimit)
	}

	share.Get("/e/{token}", deps.ShareHandler.View)
	share.Post("/e/{token}/accept", deps.ShareHandler.Accept)
	share.Post("/e/{token}/pay", deps.ShareHandler.Pay)
}

// RegisterOpsRoutes registers health and metrics endpoints. /metrics should
// be firewalled in production.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Handle("GET", "/health", deps.HealthHandler)
	r.Handle("GET", "/metrics", deps.MetricsHandler)
}
