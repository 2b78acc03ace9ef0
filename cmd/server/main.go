package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockmcp/internal/cache"
	"stockmcp/internal/config"
	"stockmcp/internal/dispatch"
	"stockmcp/internal/handlers"
	"stockmcp/internal/instrumentation"
	"stockmcp/internal/provider"
	"stockmcp/internal/registry"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("gateway_starting",
		"port", cfg.Port,
		"provider_base_url", cfg.ProviderBaseURL,
		"cache_capacity", cfg.CacheCapacity,
	)

	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)

	// Static tool catalogue, registered once; immutable afterwards.
	reg, err := registry.NewWithCatalog()
	if err != nil {
		logger.Error("failed to build tool registry", "error", err)
		os.Exit(1)
	}
	logger.Info("registry_initialized", "tools", len(reg.List()))

	// Upstream provider client
	providerClient := provider.New(provider.Config{
		BaseURL:            cfg.ProviderBaseURL,
		Timeout:            cfg.ProviderTimeout(),
		MaxAttempts:        cfg.RetryMaxAttempts,
		BaseBackoff:        cfg.RetryBaseBackoff(),
		RateLimit:          cfg.ProviderRateLimit,
		RateBurst:          cfg.ProviderRateBurst,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerTimeout:     cfg.BreakerTimeout(),
	}, logger, metrics)

	// Optional shared Redis tier
	var tier cache.Tier
	if cfg.RedisURL != "" {
		redisTier, err := cache.NewRedisTier(cfg.RedisURL, cfg.RedisPassword, logger)
		if err != nil {
			logger.Error("failed to create redis tier", "error", err)
			os.Exit(1)
		}
		defer redisTier.Close()
		tier = redisTier
		logger.Info("redis_tier_initialized")
	}

	// Response cache with background TTL sweeping. The fetch timeout covers
	// the provider's full retry budget, not a single attempt.
	store := cache.New(cfg.CacheCapacity, cfg.RequestTimeout(), tier, logger, metrics)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	store.StartJanitor(janitorCtx, cfg.CacheSweepInterval())

	ttlOverrides, err := cfg.TTLOverrides()
	if err != nil {
		logger.Error("invalid TTL overrides", "error", err)
		os.Exit(1)
	}

	dispatcher := dispatch.New(reg, store, providerClient, dispatch.TTLConfig{
		Class:     cfg.ClassTTLs(),
		Overrides: ttlOverrides,
	}, logger, metrics)

	// Handlers
	mcpHandler := handlers.NewMCPInvokeHandler(dispatcher, reg, logger)
	toolsHandler := handlers.NewListToolsHandler(reg, logger)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(handlers.CorrelationIDMiddleware)
	r.Use(handlers.LoggingMiddleware(logger))
	r.Use(handlers.TimeoutMiddleware(cfg.RequestTimeout(), logger))

	r.Get("/health", handlers.HealthCheckHandler(logger))
	r.Get("/tools", toolsHandler.ServeHTTP)
	r.Post("/mcp", mcpHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout() + 5*time.Second,
	}

	// Prometheus endpoint on its own port
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.PrometheusPort),
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("metrics_listening", "port", cfg.PrometheusPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_error", "error", err)
		}
	}()

	go func() {
		logger.Info("gateway_listening", "port", cfg.Port, "status", "healthy")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server_error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	// Graceful shutdown
	logger.Info("shutdown_signal_received", "signal", sig.String())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		logger.Error("metrics_shutdown_error", "error", err)
	}

	logger.Info("gateway_stopped")
}
