package middleware

import "net/http"

// Common size limits
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize covers estimate payloads with many line items.
	DefaultMaxBodySize = 1 * MB

	// WebhookMaxBodySize is the largest payment event body accepted.
	WebhookMaxBodySize = 64 * KB
)

// MaxBodySize rejects bodies declared larger than maxBytes with 413 and
// caps the rest with http.MaxBytesReader.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondTooLarge(w, r)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
