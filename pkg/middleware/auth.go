// Package middleware provides the per-request gates that run before the
// resource handlers: bearer-token authentication and rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/taskvault/taskvault/pkg/contextkeys"
	"github.com/taskvault/taskvault/pkg/httputil"
	"github.com/taskvault/taskvault/pkg/observability"
)

// TokenVerifier verifies a presented session token and returns the user id
// it encodes. Satisfied by *token.Issuer.
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// AuthMiddleware authenticates requests via the Authorization header and
// attaches the resolved user id to the request context. It holds no mutable
// state; the verifier's secret is read-only.
type AuthMiddleware struct {
	verifier TokenVerifier
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware. metrics may be nil.
func NewAuthMiddleware(verifier TokenVerifier, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with authentication. Missing, malformed,
// tampered, and expired credentials all produce the same 401 body; the
// downstream handler is never invoked on failure.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject(w, "missing authorization header")
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.reject(w, "invalid authorization header format")
			return
		}

		userID, err := m.verifier.Verify(parts[1])
		if err != nil {
			m.reject(w, "invalid or expired token")
			return
		}

		if m.metrics != nil {
			m.metrics.TokenVerifications.WithLabelValues("success").Inc()
		}

		ctx := contextkeys.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, message string) {
	if m.metrics != nil {
		m.metrics.TokenVerifications.WithLabelValues("failure").Inc()
	}
	httputil.WriteUnauthorized(w, message)
}
