package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/bidwell/internal/tenant"
)

// OwnerIDHeader carries the authenticated owner ID set by the upstream
// auth proxy.
const OwnerIDHeader = "X-Owner-ID"

// RequireOwner resolves the X-Owner-ID header to an owner and attaches it
// to the request context. Missing or malformed IDs get 401; IDs with no
// owner row get 404.
func RequireOwner(resolver tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(OwnerIDHeader)
			if raw == "" {
				respondUnauthorized(w, r, "owner required")
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				respondUnauthorized(w, r, "invalid owner id")
				return
			}

			ctx, err := tenant.WithOwner(r.Context(), resolver, id)
			if err != nil {
				switch {
				case errors.Is(err, tenant.ErrOwnerNotFound):
					respondNotFound(w, r, "owner not found")
				case errors.Is(err, tenant.ErrNoOwner):
					respondUnauthorized(w, r, "owner required")
				default:
					respondInternalError(w, r, err)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withOwnerLogger(ctx)))
		})
	}
}
