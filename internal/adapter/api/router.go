package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/V4T54L/vsd-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/vsd-gateway/internal/adapter/api/middleware"
	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/domain"
	"github.com/V4T54L/vsd-gateway/internal/pkg/config"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// NewPublicRouter creates the router for the public tenant API.
func NewPublicRouter(
	cfg *config.Config,
	logger *slog.Logger,
	m *metrics.GatewayMetrics,
	tenantAuth *auth.TenantAuthenticator,
	audit domain.AuditRecorder,
	transactions *usecase.TransactionUseCase,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger, "public", m))
	r.Use(middleware.Recover(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"Content-Type", "Authorization"},
		OptionsPassthrough: true,
		MaxAge:             300,
	}))
	r.Use(bodyLimit(cfg.MaxBodyBytes))

	transactionHandler := handler.NewTransactionHandler(transactions, logger)

	r.Get("/health", handler.HealthCheck)
	r.Options("/api/transactions", handler.Preflight)
	r.With(
		middleware.TenantAuth(tenantAuth, audit, logger, m),
		middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger, m),
	).Post("/api/transactions", transactionHandler.Create)

	return r
}

func bodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
