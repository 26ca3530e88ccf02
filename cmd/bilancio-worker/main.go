package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/log"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting bilancio-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// Google Sheets is the sync destination. Without it the worker stays up
	// but idle, so a shared compose file works with sync disabled.
	var sheetsClient *gsheet.Client
	if cfg.GoogleSpreadsheetID != "" {
		var err error
		sheetsClient, err = gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		_ = amqpClient.Close()
	})

	if sheetsClient == nil {
		logger.Info("Skipping sync operations - no Google Sheets client available")
		cli.WaitForShutdown(ctx, done)
		return
	}

	syncWorker := worker.NewSyncWorker(sqliteRepo, sheetsClient, sheetsClient, cfg.SyncBatchSize)

	// Catch up on records written while the worker was down.
	logger.Info("Performing startup sync check", log.FieldOperation, log.OpStartup)
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeRecords(gctx, amqp.Handlers{
			OnSync: func(msg *amqp.RecordSyncMessage) error {
				return syncWorker.HandleSyncMessage(gctx, msg)
			},
			OnDelete: func(msg *amqp.RecordDeleteMessage) error {
				return syncWorker.HandleDeleteMessage(gctx, msg)
			},
		})
	})

	// Periodic sweep for records whose messages never arrived.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := syncWorker.ProcessPendingRecords(gctx); err != nil {
					logger.Error("Periodic sync failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
