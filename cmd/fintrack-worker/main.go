package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, logger := cli.Bootstrap(false)
	logger = logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting fintrack-worker", applog.FieldOperation, applog.OpStartup)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	result := cli.InitBackend(ctx, logger, cfg, false)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Cleanup failed", applog.FieldError, err)
		}
	}()

	b := result.Backend
	if b.AMQP == nil {
		logger.Error("AMQP is required by the worker; set AMQP_URL")
		return 1
	}

	budgetWorker := worker.NewBudgetWorker(b.Budgets, b.AMQP, logger)
	b.Caches.Register(budgetWorker.Announced())

	// Catch up on alerts that crossed a threshold while the worker was down.
	if _, err := budgetWorker.ScanAlerts(ctx); err != nil {
		logger.Error("Startup alert scan failed", applog.FieldError, err)
	}

	go budgetWorker.RunAlertScanner(ctx, cfg.AlertScanInterval)

	exitCode := 0
	if err := b.AMQP.Run(ctx, budgetWorker.HandleTransactionEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		exitCode = 1
	}

	logger.Info("Worker stopped", applog.FieldOperation, applog.OpShutdown)
	return exitCode
}
