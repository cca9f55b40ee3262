package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/app"
	"github.com/Guizzs26/go-sync-hr/internal/broker"
	"github.com/Guizzs26/go-sync-hr/internal/config"
	"github.com/Guizzs26/go-sync-hr/internal/processor"
	"github.com/Guizzs26/go-sync-hr/pkg/infra"
)

func main() {
	cfg := config.Load()
	logger := infra.SetupLogger(cfg)
	slog.SetDefault(logger)

	if cfg.RabbitMQURL == "" {
		logger.Error("CRITICAL: RABBITMQ_URL environment variable is missing")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("🔥 Trigger listener initializing...", "exchange", cfg.RabbitMQExchange)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("CRITICAL: bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	handler := processor.NewTriggerHandler(a.Pipeline, a.Approvals, logger)

	go a.ServeObservability(ctx, cfg.MetricsPort, "LISTENER")

	connBackoff := infra.NewBackoff(1*time.Second, 60*time.Second, 2.0)

	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Shutdown signal received")
			return
		default:
		}

		consumer, err := broker.NewTriggerConsumer(cfg.RabbitMQURL, cfg.RabbitMQExchange, handler, logger)
		if err != nil {
			logger.Error("RabbitMQ connection failed, retrying...",
				"attempt", connBackoff.Attempts()+1,
				"error", err,
			)
			if !connBackoff.Wait(ctx) {
				return
			}
			continue
		}

		connBackoff.Reset()
		logger.Info("✅ Connected to broker. Listening for trigger commands...")

		if err := consumer.Listen(ctx); err != nil {
			logger.Error("⚠️ Consumer connection lost", "error", err)
		}
		consumer.Close()
	}
}
