package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aaron7k/wealth/internal/amqp"
	"github.com/aaron7k/wealth/internal/config"
	applog "github.com/aaron7k/wealth/internal/log"
	"github.com/aaron7k/wealth/internal/rates"
	"github.com/aaron7k/wealth/internal/services"
	"github.com/aaron7k/wealth/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentBilling)
	applog.SetDefault(logger)

	logger.Info("Starting billing-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Subscription charges go through the transaction service so they get
	// the same balance effect and sync publishing as manual entries.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode",
				applog.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized - charges will sync via wealth-worker")
		}
	} else {
		logger.Info("AMQP disabled - charges will not sync to Google Sheets")
	}

	converter := rates.NewConverter(cfg.RatesURL)
	txService := services.NewTransactionService(repo, amqpClient, converter)
	processor := services.NewBillingProcessor(repo, txService)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Subscription billing processor configured",
		"interval", cfg.BillingInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.BillingInterval)
	defer ticker.Stop()

	// Run initial processing on startup to catch charges missed while down.
	if count, err := processor.ProcessDueSubscriptions(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", applog.FieldError, err)
	} else {
		logger.Info("Initial processing complete", "charges_created", count)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
			logger.Info("Billing-worker shutdown complete")
			return
		case now := <-ticker.C:
			count, err := processor.ProcessDueSubscriptions(ctx, now)
			if err != nil {
				logger.Error("Periodic processing failed", applog.FieldError, err)
			} else {
				logger.Info("Periodic processing complete",
					"charges_created", count,
					"next_check", now.Add(cfg.BillingInterval).Format("15:04:05"))
			}
		}
	}
}
