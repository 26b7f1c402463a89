package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/bidwell/internal/domain"
)

// contextKey is an unexported type for middleware context keys.
type contextKey string

// ============================================================================
// MIDDLEWARE ERROR RESPONSE HELPERS
// ============================================================================
//
// These mirror handler.ErrorResponse but are self-contained to avoid
// circular imports (handler imports middleware for GetLogger).

// respondWithError writes the JSON error envelope used by the whole API.
func respondWithError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := domain.ErrorCode(err)

	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if status >= 500 {
		GetLogger(r.Context()).Error("middleware error", attrs...)
	} else {
		GetLogger(r.Context()).Info("middleware error", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": domain.ErrorMessage(err),
		},
	})
}

func respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	respondWithError(w, r, http.StatusUnauthorized, domain.Unauthorized("", message))
}

func respondNotFound(w http.ResponseWriter, r *http.Request, message string) {
	respondWithError(w, r, http.StatusNotFound, domain.Errorf(domain.ENOTFOUND, "", "%s", message))
}

func respondInternalError(w http.ResponseWriter, r *http.Request, err error) {
	respondWithError(w, r, http.StatusInternalServerError, domain.Internal(err, "", "An unexpected error occurred"))
}

func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, http.StatusTooManyRequests, domain.Errorf(domain.ERATELIMIT, "", "Too many requests"))
}

func respondTooLarge(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, http.StatusRequestEntityTooLarge, domain.Invalid("", "Request body too large"))
}
