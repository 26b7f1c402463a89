package routes

import (
	"github.com/dukerupert/bidwell/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
// These routes handle incoming webhooks from external services.
//
// Note: Webhook routes do NOT have owner middleware.
// Each webhook handler is responsible for verifying the request
// signature (e.g., Stripe signature verification).
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	hooks := r
	if deps.BodyLimit != nil {
		hooks = r.Group(deps.BodyLimit)
	}
	hooks.Post("/webhooks/stripe", deps.StripeHandler.HandleWebhook)
}
