package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/auth"
	"bilancio/internal/cache"
	"bilancio/internal/cli"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadServerConfig(logger)

	store := cli.OpenStore(context.Background(), logger, cfg)
	loc := cli.Locale(cfg)

	// A nil *amqp.Client must not reach the services as a non-nil Publisher.
	var events services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to connect to AMQP, ledger events disabled", applog.FieldError, err)
		} else {
			amqpClient = c
			events = c
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP_URL not set, ledger events disabled")
	}

	dashboardCache := cache.NewLRUCache[services.Dashboard](cfg.CacheSize, cfg.CacheTTL)
	analyticsCache := cache.NewLRUCache[services.Analytics](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(dashboardCache)
	caches.Register(analyticsCache)
	caches.StartCleanup(cfg.CacheTTL)

	dashboard := services.NewDashboardService(store.Store, dashboardCache, loc, logger)
	analytics := services.NewAnalyticsService(store.Store, analyticsCache, loc, logger)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     store.Store,
		Auth:      auth.NewService(store.Store, tokens, logger),
		Tokens:    tokens,
		Ledger:    services.NewLedgerService(store.Store, events, logger, dashboard, analytics),
		Dashboard: dashboard,
		Analytics: analytics,
		Reports:   services.NewReportService(store.Store, loc, logger),
		Admin:     services.NewAdminService(store.Store, loc, logger),
	}, apphttp.Options{RateLimitPerMinute: cfg.RateLimitPerMinute, Logger: logger})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", applog.FieldError, err)
			}
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Warn("Failed to close store", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting bilancio server",
		"port", cfg.Port, "backend", cfg.DataBackend, "locale", cfg.ReportLocale, applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
