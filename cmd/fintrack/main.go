package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, logger := cli.Bootstrap(true)
	logger.Info("Starting fintrack server", applog.FieldOperation, applog.OpStartup, "port", cfg.Port)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	result := cli.InitBackend(ctx, logger, cfg, true)
	b := result.Backend

	svc := apphttp.Services{
		Transactions: b.Transactions,
		Budgets:      b.Budgets,
		Insights:     b.Insights,
		Sessions:     b.Bridge,
		Exporter:     b.Exporter,
		DB:           b.Repo,
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:                ":" + cfg.Port,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
		FilesDir:            b.FilesDir,
		AIRequestsPerMinute: cfg.AIRequestsPerMinute,
	}, svc, logger)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
		_ = srv.Close()
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}

	if err := result.Cleanup(); err != nil {
		logger.Error("Cleanup failed", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
	return exitCode
}
