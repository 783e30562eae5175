package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/vsd-gateway/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/vsd-gateway/internal/adapter/repository/redis"
	"github.com/V4T54L/vsd-gateway/internal/pkg/config"
	"github.com/V4T54L/vsd-gateway/internal/pkg/logger"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

const (
	consumerGroup      = "audit-sink"
	processingInterval = 1 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting audit sink worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate postgres schema", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Create a unique consumer name for this instance
	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "auditsink-default"
	}

	buffer := redisrepo.NewAuditStream(redisClient, log, consumerGroup, cfg.AuditDLQStream, nil, nil)
	sink := postgres.NewAuditRepository(db, log)
	processAudit := usecase.NewProcessAuditUseCase(buffer, sink, log, consumerGroup, consumerName,
		cfg.SinkBatchSize, cfg.SinkRetryCount, cfg.SinkRetryBackoff, cfg.SinkClaimMinIdle)

	ticker := time.NewTicker(processingInterval)
	defer ticker.Stop()

	log.Info("audit sink worker started", "group", consumerGroup, "consumer", consumerName)

Loop:
	for {
		select {
		case <-ticker.C:
			// Drain everything available before waiting for the next tick.
			for {
				n, err := processAudit.ProcessBatch(ctx)
				if err != nil {
					log.Error("error processing audit batch", "error", err)
					break
				}
				if n == 0 {
					break
				}
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down audit sink loop")
			break Loop
		}
	}

	log.Info("audit sink worker shut down gracefully")
}
