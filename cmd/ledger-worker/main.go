// Command ledger-worker consumes ledger events from the bus and appends them
// to the SQLite audit trail.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/cli"
	"backoffice/internal/config"
	applog "backoffice/internal/log"
	"backoffice/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentWorker, config.Load().LogLevel)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}

	logger.Info("Starting ledger-worker", "db_path", cfg.SQLiteDBPath, "queue", cfg.AMQPQueue)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	audit := worker.NewAuditWorker(repo)
	errCh := make(chan error, 1)
	go func() { errCh <- audit.Run(ctx, amqpClient) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
			os.Exit(1)
		}
	case <-ctx.Done():
		<-errCh
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger worker stopped")
}
