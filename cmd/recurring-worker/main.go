package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"presupuesto/internal/amqp"
	"presupuesto/internal/backend"
	"presupuesto/internal/config"
	applog "presupuesto/internal/log"
	"presupuesto/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.NewFromEnv(applog.ComponentRecurring)
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Backend configuration failed", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Backend initialization failed", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	// AMQP is optional; without it recurring postings are not exported.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	processor := services.NewRecurringProcessor(result.Store, amqpClient)

	runOnce := func() {
		created, err := processor.ProcessAll(ctx, time.Now())
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
			return
		}
		logger.Info("Recurring processing complete", "transactions_created", created)
	}

	// Catch up on startup, then follow the schedule.
	runOnce()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RecurringCron, runOnce); err != nil {
		logger.Error("Invalid cron expression", "error", err, "cron", cfg.RecurringCron)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Recurring processor scheduled", "cron", cfg.RecurringCron, "backend", cfg.DataBackend)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("Recurring worker stopped gracefully")
}
