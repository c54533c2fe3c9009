package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"clinica/internal/amqp"
	"clinica/internal/cli"
	"clinica/internal/config"
	"clinica/internal/log"
	"clinica/internal/sheets/google"
	"clinica/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	if err := run(logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(logger *log.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	mirror, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(log.ComponentSheets))
	if err != nil {
		return fmt.Errorf("create sheets mirror: %w", err)
	}

	// Rows left unsynced in SQLite are only visible when the worker shares
	// the server's database.
	var pending worker.PendingStore
	if cfg.DataBackend == "sqlite" {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		pending = repo
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(mirror, pending, cfg.SyncBatchSize, logger.WithComponent(log.ComponentWorker))

	logger.Info("Starting clinica mirror worker",
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sweep", pending != nil,
		"sync_interval", cfg.SyncInterval.String())

	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Warn("Startup sync check failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(client.Consume(gctx, w.HandleEvent))
	})
	if pending != nil {
		g.Go(func() error {
			return sweep(gctx, w, cfg.SyncInterval, logger)
		})
	}
	return g.Wait()
}

// sweep retries unsynced rows every interval until ctx is done.
func sweep(ctx context.Context, w *worker.MirrorWorker, interval time.Duration, logger *log.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Pending sync sweep failed", log.FieldError, err, log.FieldOperation, log.OpSync)
			}
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
