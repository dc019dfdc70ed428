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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/user/integration-hub/internal/adapter/api"
	brokerredis "github.com/user/integration-hub/internal/adapter/broker/redis"
	"github.com/user/integration-hub/internal/adapter/metrics"
	"github.com/user/integration-hub/internal/adapter/repository/postgres"
	"github.com/user/integration-hub/internal/adapter/upstream"
	"github.com/user/integration-hub/internal/domain"
	"github.com/user/integration-hub/internal/pkg/config"
	"github.com/user/integration-hub/internal/pkg/logger"
	"github.com/user/integration-hub/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

const publisherSource = "integration-hub"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewPipelineMetrics()

	// --- Start Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// --- Upstream Clients ---
	authClient := upstream.NewAuthClient(cfg.UpstreamBaseURL, map[string]upstream.Credentials{
		domain.SystemCRM:       {Username: cfg.CRMUsername, Password: cfg.CRMPassword},
		domain.SystemInventory: {Username: cfg.InventoryUsername, Password: cfg.InventoryPassword},
	}, logger)
	tokenCache := upstream.NewTokenCache(authClient.Exchange, cfg.TokenTTL, logger, m, nil)

	limiter := rate.NewLimiter(rate.Limit(cfg.UpstreamRateLimit), 1)
	crmClient := upstream.NewCRMClient(cfg.UpstreamBaseURL, tokenCache, limiter, logger)
	inventoryClient := upstream.NewInventoryClient(cfg.UpstreamBaseURL, tokenCache, limiter, logger)
	soapClient := upstream.NewSoapClient(cfg.UpstreamBaseURL, logger)

	// --- Broker and Store ---
	publisher := brokerredis.NewPublisher(redisClient, publisherSource, logger)
	customerRepo := postgres.NewCustomerRepository(db, logger, m)

	// --- Use Cases ---
	orchestrator := usecase.NewFetchOrchestrator(crmClient, inventoryClient, publisher, logger, m, usecase.OrchestratorOptions{
		PageSize:  cfg.FetchPageSize,
		WalkPages: cfg.FetchWalkPages,
		MaxPages:  cfg.FetchMaxPages,
		Strict:    cfg.FetchStrict,
	})
	ingestUseCase := usecase.NewIngestBatchUseCase(customerRepo, logger)
	addCustomerUseCase := usecase.NewAddCustomerUseCase(soapClient, customerRepo, logger)

	// --- Optional Fetch Scheduler ---
	if cfg.SchedulerEnabled {
		go runScheduler(ctx, orchestrator, cfg.SchedulerInterval, cfg.FetchTimeout, logger)
	}

	// --- HTTP Server ---
	router := api.NewRouter(logger, orchestrator, ingestUseCase, addCustomerUseCase, soapClient, customerRepo, cfg.FetchTimeout)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		logger.Info("starting integration hub server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}

// runScheduler triggers a full fetch-and-publish cycle on a fixed interval
// until the context is cancelled.
func runScheduler(ctx context.Context, orchestrator *usecase.FetchOrchestrator, interval, timeout time.Duration, logger *slog.Logger) {
	log := logger.With("component", "scheduler")
	log.Info("fetch scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			counts, err := orchestrator.FetchAndPublishAll(fetchCtx)
			cancel()
			if err != nil {
				log.Error("scheduled fetch failed", "error", err)
				continue
			}
			log.Info("scheduled fetch completed",
				"customers_published", counts.CustomersPublished,
				"products_published", counts.ProductsPublished)
		case <-ctx.Done():
			log.Info("fetch scheduler stopped")
			return
		}
	}
}
