package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris/pi-settlement/pkg/app"
	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/handlers"
	"github.com/chris/pi-settlement/pkg/logging"
	"github.com/chris/pi-settlement/pkg/middleware"
	"github.com/chris/pi-settlement/pkg/server"
)

const rateLimitSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		logging.New(config.LoggingConfig{Level: "error"}).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	deps := server.RouterDependencies{
		API: handlers.NewApiHandler(components.Orchestrator, logger),
	}
	if components.Hub != nil {
		deps.WebSocket = components.Hub
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		if err := limiter.TrustProxies(cfg.RateLimit.TrustedProxies...); err != nil {
			logger.Error("invalid rate limit config", "error", err)
			os.Exit(1)
		}
		go limiter.Run(ctx, rateLimitSweepInterval)
		deps.RateLimiter = limiter
	}

	srv := server.New(logger, cfg.HTTP, server.NewRouter(logger, deps))
	logger.Info("starting settlement API", "addr", srv.Addr(), "storage", cfg.StorageBackend)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
