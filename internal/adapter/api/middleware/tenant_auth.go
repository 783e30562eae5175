package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/vsd-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// TenantAuth resolves the optional tenant API key of public API calls.
// Requests without an Authorization header pass through unattributed.
// Rejected keys are answered with 401 and recorded as Failure entries.
func TenantAuth(authn *auth.TenantAuthenticator, audit domain.AuditRecorder, logger *slog.Logger, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				m.AuthDecision("tenant", "untenanted")
				next.ServeHTTP(w, r)
				return
			}

			tenant, err := authn.Authenticate(r.Context(), header)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidAPIKey) {
					logger.Warn("invalid API key provided", "remote_addr", r.RemoteAddr)
					m.AuthDecision("tenant", "unauthenticated")
					audit.Record(r.Context(), domain.AuditEntry{
						Type:     domain.AuditFailure,
						Endpoint: r.URL.Path,
						Message:  "invalid API key",
						Count:    1,
					})
					handler.RespondError(w, logger, http.StatusUnauthorized, "Invalid API Key")
					return
				}
				logger.Error("failed to validate API key", "error", err)
				m.AuthDecision("tenant", "error")
				handler.RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
				return
			}

			m.AuthDecision("tenant", "allowed")
			next.ServeHTTP(w, r.WithContext(auth.WithTenant(r.Context(), tenant)))
		})
	}
}
