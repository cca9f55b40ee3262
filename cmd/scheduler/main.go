package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/api"
	"github.com/Guizzs26/go-sync-hr/internal/app"
	"github.com/Guizzs26/go-sync-hr/internal/config"
	"github.com/Guizzs26/go-sync-hr/pkg/infra"
)

func main() {
	cfg := config.Load()
	logger := infra.SetupLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("CRITICAL: bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Store.Migrate(ctx); err != nil {
		logger.Error("CRITICAL: schema migration failed", "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.ServeObservability(ctx, cfg.MetricsPort, "SCHEDULER")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		serveAPI(ctx, a)
	}()

	logger.Info("🚀 HR sync scheduler started", "pid", os.Getpid(), "timezone", cfg.ScheduleTimezone)

	// Blocks until the signal context is canceled.
	a.Scheduler().Run(ctx)

	wg.Wait()
	logger.Info("✅ Shutdown complete")
}

func serveAPI(ctx context.Context, a *app.App) {
	handlers := api.NewHandlers(a.Pipeline, a.Approvals, a.Gate, a.Ledger, a.Config.CronSecret, a.Logger)
	server := api.NewServer(":"+a.Config.HTTPPort, handlers.Router())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	a.Logger.Info("HTTP API listening", "port", a.Config.HTTPPort)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Logger.Error("HTTP API failed", "error", err)
	}
}
