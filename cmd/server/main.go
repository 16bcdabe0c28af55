// Package main is the entry point for the taskgate admission-control server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskgate-ai/taskgate/internal/api"
	"github.com/taskgate-ai/taskgate/internal/config"
	"github.com/taskgate-ai/taskgate/internal/governance"
	"github.com/taskgate-ai/taskgate/internal/policy"
	"github.com/taskgate-ai/taskgate/internal/routing"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfgManager, err := config.NewManager(*configPath, bootstrapLogger)
	if err != nil {
		bootstrapLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting taskgate", "version", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	creds := config.NewEnvCredentialSource(cfg.Providers)
	engine := governance.NewEngine(mapGovernanceConfig(cfg.Governance),
		governance.WithCredentialSource(creds),
		governance.WithLogger(logger),
	)
	gate := policy.NewGate(cfg.Policy.Enabled, policy.WithLogger(logger))
	router := routing.New(routing.NewHeuristicClassifier(), engine, gate,
		routing.WithLogger(logger),
	)

	cfgManager.OnChange(func(next *config.Config) {
		gov := next.Governance
		if err := engine.SetCostLimit("global", gov.Cost.GlobalSoftLimitUSD, gov.Cost.GlobalHardLimitUSD); err != nil {
			logger.Error("failed to apply reloaded cost limit", "error", err)
		}
		if err := engine.SetRateLimit("global", gov.Rate.RequestsPerMinute, gov.Rate.TokensPerMinute); err != nil {
			logger.Error("failed to apply reloaded rate limit", "error", err)
		}
		engine.SetPolicy(mapFallbackPolicy(gov.Fallback))
		logger.Info("governance limits reapplied from config")
	})
	if err := cfgManager.Watch(ctx); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}

	handler := api.NewHandler(engine, router, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	limiter := newClientRateLimiter(cfg.Server.RequestsPerMinute)
	root := loggingMiddleware(logger, rateLimitMiddleware(limiter, mux))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	_ = cfgManager.Close()
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func mapGovernanceConfig(cfg config.GovernanceConfig) governance.Config {
	return governance.Config{
		GlobalSoftLimitUSD:   cfg.Cost.GlobalSoftLimitUSD,
		GlobalHardLimitUSD:   cfg.Cost.GlobalHardLimitUSD,
		MaxRequestsPerMinute: cfg.Rate.RequestsPerMinute,
		MaxTokensPerMinute:   cfg.Rate.TokensPerMinute,
		Policy:               mapFallbackPolicy(cfg.Fallback),
	}
}

func mapFallbackPolicy(cfg config.FallbackConfig) governance.FallbackPolicy {
	return governance.FallbackPolicy{
		DefaultProvider:  cfg.DefaultProvider,
		FallbackOrder:    cfg.Order,
		OnTimeout:        cfg.OnTimeout,
		OnAuthError:      cfg.OnAuthError,
		OnBudgetExceeded: cfg.OnBudgetExceeded,
		OnDegraded:       cfg.OnDegraded,
	}
}
