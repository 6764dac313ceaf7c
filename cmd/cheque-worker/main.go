// The cheque-worker binary consumes ledger events from the AMQP queue and
// logs them. It is the attachment point for downstream processing such as
// export or notification fan-out.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cheque/internal/amqp"
	"cheque/internal/config"
	applog "cheque/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent("cheque-worker")
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting cheque-worker", "queue", cfg.AMQPQueue)

	err = client.ConsumeEvents(ctx, func(ev *amqp.LedgerEvent) error {
		logger.Info("Ledger event received",
			"event_id", ev.ID,
			"operation", ev.Operation,
			"account_id", ev.AccountID,
			"entry_id", ev.EntryID,
			"timestamp", ev.Timestamp)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
