package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/vsd-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/vsd-gateway/internal/adapter/api/middleware"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// NewOpsRouter creates the router for metrics, health and audit pipeline
// inspection. pipeline is nil when audit entries are written directly to the store.
func NewOpsRouter(gatherer prometheus.Gatherer, pipeline *usecase.AuditPipelineUseCase, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if pipeline != nil {
		pipelineHandler := handler.NewPipelineHandler(pipeline, logger)
		r.Get("/pipeline/audit", pipelineHandler.Stats)
		r.Post("/pipeline/audit/trim", pipelineHandler.Trim)
		r.Get("/pipeline/audit/pending", pipelineHandler.Pending)
		r.Post("/pipeline/audit/claim", pipelineHandler.Claim)
	}

	return r
}
