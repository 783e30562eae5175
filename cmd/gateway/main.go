package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/vsd-gateway/internal/adapter/api"
	"github.com/V4T54L/vsd-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/adapter/pii"
	"github.com/V4T54L/vsd-gateway/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/vsd-gateway/internal/adapter/repository/redis"
	"github.com/V4T54L/vsd-gateway/internal/adapter/repository/wal"
	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/domain"
	"github.com/V4T54L/vsd-gateway/internal/pkg/config"
	"github.com/V4T54L/vsd-gateway/internal/pkg/logger"
	"github.com/V4T54L/vsd-gateway/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

const auditSinkGroup = "audit-sink"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewGatewayMetrics(prometheus.DefaultRegisterer)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate postgres schema", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("could not connect to redis, token revocation checks will fail until it is reachable", "error", err)
	}

	// --- Initialize Repositories ---
	store := postgres.NewDocumentStore(db, log)
	tenantDirectory := postgres.NewTenantDirectory(db, log, cfg.TenantCacheTTL, m)
	revocations := redisrepo.NewRevocationStore(redisClient)

	// --- Audit Pipeline ---
	broker := handler.NewAuditBroker(ctx, log)

	var (
		auditSink domain.AuditAppender
		pipeline  *usecase.AuditPipelineUseCase
	)
	switch cfg.AuditSink {
	case config.AuditSinkStream:
		walRepo, err := wal.NewWALRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, log)
		if err != nil {
			log.Error("failed to initialize WAL repository", "error", err)
			os.Exit(1)
		}
		defer walRepo.Close()

		auditStream := redisrepo.NewAuditStream(redisClient, log, auditSinkGroup, cfg.AuditDLQStream, walRepo, m)
		if err := auditStream.ReplayWAL(ctx); err != nil {
			log.Warn("failed to replay WAL on startup", "error", err)
		}
		// Start Redis health check and WAL replay loop
		go auditStream.StartHealthCheck(ctx, 5*time.Second)

		auditSink = auditStream
		pipeline = usecase.NewAuditPipelineUseCase(redisrepo.NewStreamInspector(redisClient, cfg.AuditDLQStream))
	default:
		auditSink = postgres.NewAuditRepository(db, log)
	}
	auditLogger := usecase.NewAuditLogger(auditSink, broker, cfg.AuditQueueSize, log, m)

	// --- Initialize Use Cases and Services ---
	redactor := pii.NewRedactor(cfg.AuditRedactFields, log)
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:   cfg.IDTokenSecret,
		JWKSURL:  cfg.IDTokenJWKSURL,
		Issuer:   cfg.IDTokenIssuer,
		Audience: cfg.IDTokenAudience,
		CacheTTL: cfg.JWKSCacheTTL,

		MinRefreshInterval: cfg.JWKSMinRefresh,
	}, revocations, log)
	if err != nil {
		log.Error("failed to initialize identity token verifier", "error", err)
		os.Exit(1)
	}

	adminRouter := api.NewAdminRouter(api.AdminDeps{
		Verifier:     verifier,
		Policy:       auth.NewAdminPolicy(cfg.AdminAllowlist, store),
		Proxy:        usecase.NewAdminProxyUseCase(store, auditLogger, redactor, tenantDirectory, cfg.ProxyReadLimit, log),
		Tenants:      usecase.NewTenantAdminUseCase(store, auditLogger, redactor, tenantDirectory, log),
		Applications: usecase.NewApplicationUseCase(store, auditLogger, log),
		Sessions:     usecase.NewSessionUseCase(revocations, auditLogger),
		Broker:       broker,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, log, m)

	publicRouter := api.NewPublicRouter(cfg, log, m,
		auth.NewTenantAuthenticator(tenantDirectory),
		auditLogger,
		usecase.NewTransactionUseCase(auditLogger),
	)

	// --- Servers ---
	opsServer := &http.Server{
		Addr:    cfg.OpsAddr,
		Handler: api.NewOpsRouter(prometheus.DefaultGatherer, pipeline, log),
	}
	adminServer := &http.Server{
		Addr:        cfg.AdminProxyAddr,
		Handler:     adminRouter,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: /audit/stream is long-lived.
	}
	publicServer := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      publicRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	servers := []struct {
		name string
		srv  *http.Server
	}{
		{"ops", opsServer},
		{"admin proxy", adminServer},
		{"public api", publicServer},
	}
	for _, s := range servers {
		go func(name string, srv *http.Server) {
			log.Info("starting server", "server", name, "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("server failed", "server", name, "error", err)
				stop() // Trigger shutdown on server error
			}
		}(s.name, s.srv)
	}

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	for _, s := range []*http.Server{publicServer, adminServer, opsServer} {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "addr", s.Addr, "error", err)
		}
	}
	if err := auditLogger.Close(shutdownCtx); err != nil {
		log.Error("audit log did not drain before shutdown", "error", err)
	}

	log.Info("servers shut down gracefully")
}
