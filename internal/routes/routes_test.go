package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/bidwell/internal/handler/api"
	"github.com/dukerupert/bidwell/internal/router"
)

func denyAll(hits *int) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*hits++
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
}

func TestRegisterOwnerRoutes_RequireOwnerMiddleware(t *testing.T) {
	var hits int
	r := router.New()
	RegisterOwnerRoutes(r, OwnerDeps{
		Middleware:         []router.Middleware{denyAll(&hits)},
		EstimateHandler:    &api.EstimateHandler{},
		MilestoneHandler:   &api.MilestoneHandler{},
		PreferencesHandler: &api.ReminderPreferencesHandler{},
	})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/estimates"},
		{http.MethodGet, "/api/estimates/stale"},
		{http.MethodGet, "/api/estimates/abc"},
		{http.MethodPut, "/api/estimates/abc"},
		{http.MethodPost, "/api/estimates/abc/send"},
		{http.MethodPost, "/api/estimates/abc/cancel"},
		{http.MethodPost, "/api/estimates/abc/convert"},
		{http.MethodPost, "/api/estimates/abc/milestones"},
		{http.MethodPost, "/api/milestones/abc/mark-paid"},
		{http.MethodPost, "/api/milestones/abc/invoice"},
		{http.MethodGet, "/api/reminder-preferences"},
		{http.MethodPut, "/api/reminder-preferences"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Equal(t, len(tests), hits)
}

func TestRegisterOpsRoutes(t *testing.T) {
	r := router.New()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	RegisterOpsRoutes(r, OpsDeps{HealthHandler: ok, MetricsHandler: ok})

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/estimates", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterShareRoutes_RateLimited(t *testing.T) {
	var hits int
	r := router.New()
	RegisterShareRoutes(r, ShareDeps{
		RateLimit:    denyAll(&hits),
		ShareHandler: &api.ShareHandler{},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/e/tok_abc/pay", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, hits)
}
