package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/app"
	"github.com/Guizzs26/go-sync-hr/internal/broker"
	"github.com/Guizzs26/go-sync-hr/internal/config"
	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/internal/service"
	"github.com/Guizzs26/go-sync-hr/pkg/infra"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		trigger    string
		invalidate bool
		remote     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := models.TriggerTypeFrom(strings.ToLower(trigger))
			if err != nil {
				return err
			}
			if remote {
				return sendCommand(cmd.Context(), models.TriggerCommand{
					Action:          models.ActionRun,
					Trigger:         t,
					InvalidateCache: invalidate,
				})
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res := a.Pipeline.Run(ctx, service.Request{Trigger: t, InvalidateCache: invalidate})
				if err := printJSON(res); err != nil {
					return err
				}
				if res.Kind == service.ResultFailed {
					return fmt.Errorf("run failed at %s: %s", res.Step, res.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", string(models.TriggerManual), "Trigger type: manual|scheduled")
	cmd.Flags().BoolVar(&invalidate, "invalidate-cache", false, "Purge the source cache before listing files")
	cmd.Flags().BoolVar(&remote, "remote", false, "Publish the command to the broker instead of running locally")
	return cmd
}

func newApproveCmd() *cobra.Command {
	var (
		by     string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "approve <import-id>",
		Short: "Accept the structure change recorded by a parked run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if remote {
				return sendCommand(cmd.Context(), models.TriggerCommand{Action: models.ActionApprove, ImportLogID: id, Actor: by})
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				log, err := a.Approvals.Approve(ctx, id, by)
				if err != nil {
					return err
				}
				return printJSON(log)
			})
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "Who approves the change (required)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Publish the command to the broker instead of applying locally")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newRejectCmd() *cobra.Command {
	var (
		by, reason string
		remote     bool
	)

	cmd := &cobra.Command{
		Use:   "reject <import-id>",
		Short: "Reject the structure change recorded by a parked run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if remote {
				return sendCommand(cmd.Context(), models.TriggerCommand{Action: models.ActionReject, ImportLogID: id, Actor: by, Reason: reason})
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				log, err := a.Approvals.Reject(ctx, id, by, reason)
				if err != nil {
					return err
				}
				return printJSON(log)
			})
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "Who rejects the change (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the change is rejected")
	cmd.Flags().BoolVar(&remote, "remote", false, "Publish the command to the broker instead of applying locally")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List runs awaiting structure approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				logs, err := a.Approvals.Pending(ctx)
				if err != nil {
					return err
				}
				return printJSON(logs)
			})
		},
	}
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show or change the automatic run schedule",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				cfg, err := a.Gate.Current(ctx)
				if err != nil {
					return err
				}
				return printJSON(cfg)
			})
		},
	}

	var frequency, day, at string
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the schedule and recompute the next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				cfg, err := a.Gate.Update(ctx, models.FrequencyFrom(frequency), models.WeekdayFrom(day), at)
				if err != nil {
					return err
				}
				return printJSON(cfg)
			})
		},
	}
	set.Flags().StringVar(&frequency, "frequency", string(models.FrequencyWeekly), "manual|daily|weekly|monthly")
	set.Flags().StringVar(&day, "day", "monday", "Weekday for weekly schedules (English or Spanish)")
	set.Flags().StringVar(&at, "time", service.DefaultRunTime, "Run time as HH:MM in the schedule timezone")

	cmd.AddCommand(show, set)
	return cmd
}

func newVersionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "versions <filename>",
		Short: "List the ingested versions of a source file, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				versions, err := a.Ledger.History(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return printJSON(versions)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum versions to list")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Store.Migrate(ctx)
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid import id %q", s)
	}
	return id, nil
}

// sendCommand publishes cmd for the listener daemon and returns once the
// broker confirms it.
func sendCommand(ctx context.Context, cmd models.TriggerCommand) error {
	cfg := config.Load()
	logger := infra.SetupLogger(cfg)
	slog.SetDefault(logger)

	if cfg.RabbitMQURL == "" {
		return fmt.Errorf("--remote requires RABBITMQ_URL")
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	cmd.CorrelationID = uuid.NewString()
	cmd.IssuedAt = time.Now().UTC()

	pub := broker.NewEventPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
	defer pub.Close()

	if err := pub.Publish(ctx, broker.CommandRoutingKey(cmd.Action), cmd); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return printJSON(map[string]string{"correlation_id": cmd.CorrelationID, "status": "queued"})
}
