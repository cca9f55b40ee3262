package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Guizzs26/go-sync-hr/internal/app"
	"github.com/Guizzs26/go-sync-hr/internal/config"
	"github.com/Guizzs26/go-sync-hr/pkg/infra"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hrsync",
		Short:        "HR extract ingestion and reconciliation",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newApproveCmd(),
		newRejectCmd(),
		newPendingCmd(),
		newScheduleCmd(),
		newVersionsCmd(),
		newMigrateCmd(),
	)
	return root
}

// withApp loads configuration, bootstraps the app and hands it to fn.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg := config.Load()
	logger := infra.SetupLogger(cfg)
	slog.SetDefault(logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
