package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/ledger/google"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting bilancio-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.OpenStore(context.Background(), logger, cfg)

	reports := services.NewReportService(store.Store, cli.Locale(cfg), logger)
	archiver := worker.NewReportArchiver(store.Store, reports, cfg.ReportArchiveDir, logger)

	var amqpClient *amqp.Client
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		archiver.Stop()
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

	if err := archiver.Start(ctx, cfg.ReportCron); err != nil {
		logger.Error("Failed to schedule report archive", applog.FieldError, err)
		os.Exit(1)
	}

	switch {
	case !cfg.SheetsEnabled():
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	case cfg.AMQPURL == "":
		logger.Info("Google Sheets mirror disabled - no AMQP_URL to consume from")
	default:
		mirror, err := google.New(ctx, google.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", applog.FieldError, err)
			os.Exit(1)
		}
		if err := mirror.EnsureHeader(ctx); err != nil {
			// Not fatal: the sheet may be reachable again by the first event.
			logger.Error("Failed to prepare mirror sheet", applog.FieldError, err)
		}

		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}

		syncer := worker.NewSyncWorker(store.Store, mirror, logger)
		go func() {
			if err := amqpClient.Consume(ctx, syncer.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", applog.FieldError, err)
			}
		}()
		logger.Info("Mirroring ledger events to Google Sheets",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName, "queue", cfg.AMQPQueue)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
