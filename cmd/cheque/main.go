package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cheque/internal/amqp"
	"cheque/internal/config"
	apphttp "cheque/internal/http"
	"cheque/internal/ledger"
	applog "cheque/internal/log"
	"cheque/internal/services"
	"cheque/internal/storage"
	"cheque/internal/storage/memory"
)

func main() {
	// .env is for local development; absent in production is fine
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store   ledger.Store
		cleanup func() error
	)
	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open sqlite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		store, cleanup = sqliteStore, sqliteStore.Close
		logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
	default:
		store, cleanup = memory.New(), func() error { return nil }
		logger.Info("Initialized memory backend")
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Store cleanup failed", "error", err)
		}
	}()

	book, err := ledger.Open(ctx, store)
	if err != nil {
		logger.Error("Failed to open checkbook", "error", err)
		os.Exit(1)
	}

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			events = client
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(book, events)
	defer svc.Close()

	srv := apphttp.NewServer(":"+cfg.Port, svc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting cheque server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
