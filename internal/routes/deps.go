package routes

import (
	"net/http"

	"github.com/dukerupert/bidwell/internal/handler/api"
	"github.com/dukerupert/bidwell/internal/handler/webhook"
	"github.com/dukerupert/bidwell/internal/router"
)

// OwnerDeps contains dependencies for the owner API. Middleware is applied
// to every owner route and must resolve the owner.
type OwnerDeps struct {
	Middleware []router.Middleware

	EstimateHandler    *api.EstimateHandler
	MilestoneHandler   *api.MilestoneHandler
	PreferencesHandler *api.ReminderPreferencesHandler
}

// ShareDeps contains dependencies for public share-link routes
type ShareDeps struct {
	// RateLimit throttles share-link traffic per client IP.
	RateLimit router.Middleware

	ShareHandler *api.ShareHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	// BodyLimit caps webhook payloads.
	BodyLimit router.Middleware

	StripeHandler *webhook.StripeHandler
}

// OpsDeps contains dependencies for health and metrics endpoints
type OpsDeps struct {
	HealthHandler  http.Handler
	MetricsHandler http.Handler
}
