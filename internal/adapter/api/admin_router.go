package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/V4T54L/vsd-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/vsd-gateway/internal/adapter/api/middleware"
	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// AdminDeps groups what the admin proxy router needs.
type AdminDeps struct {
	Verifier     middleware.TokenVerifier
	Policy       auth.AuthorizationPolicy
	Proxy        *usecase.AdminProxyUseCase
	Tenants      *usecase.TenantAdminUseCase
	Applications *usecase.ApplicationUseCase
	Sessions     *usecase.SessionUseCase
	Broker       *handler.AuditBroker
	MaxBodyBytes int64
}

// NewAdminRouter creates the router for the admin proxy. Every route requires
// an authorized admin identity.
func NewAdminRouter(deps AdminDeps, logger *slog.Logger, m *metrics.GatewayMetrics) http.Handler {
	proxyHandler := handler.NewProxyHandler(deps.Proxy, logger)
	tenantHandler := handler.NewTenantHandler(deps.Tenants, logger)
	applicationHandler := handler.NewApplicationHandler(deps.Applications, logger)
	sessionHandler := handler.NewSessionHandler(deps.Sessions, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger, "admin", m))
	r.Use(middleware.Recover(logger))
	r.Use(bodyLimit(deps.MaxBodyBytes))
	r.Use(middleware.AdminAuth(deps.Verifier, deps.Policy, deps.MaxBodyBytes, logger, m))

	r.Get("/", proxyHandler.Read)
	r.Post("/", proxyHandler.Mutate)

	r.Post("/tenants", tenantHandler.Register)
	r.Post("/tenants/{id}/rotate-key", tenantHandler.RotateKey)
	r.Post("/tenants/{id}/status", tenantHandler.SetStatus)

	r.Post("/applications/{id}/approve", applicationHandler.Approve)
	r.Post("/applications/{id}/reject", applicationHandler.Reject)

	r.Post("/admins/{uid}/revoke-tokens", sessionHandler.RevokeTokens)

	if deps.Broker != nil {
		r.Get("/audit/stream", deps.Broker.ServeHTTP)
	}

	return r
}
