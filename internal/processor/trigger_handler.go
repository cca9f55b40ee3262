package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/internal/service"
	"github.com/Guizzs26/go-sync-hr/pkg/metrics"
	"github.com/google/uuid"
)

// ErrPermanent marks commands that will fail the same way on every
// redelivery. The consumer drops them instead of requeueing.
var ErrPermanent = errors.New("permanent command failure")

type Runner interface {
	Run(ctx context.Context, req service.Request) service.Result
}

type Resolver interface {
	Approve(ctx context.Context, id int64, approvedBy string) (models.ImportLog, error)
	Reject(ctx context.Context, id int64, rejectedBy, reason string) (models.ImportLog, error)
}

// TriggerHandler executes commands consumed from the broker against the
// pipeline and the approval service.
type TriggerHandler struct {
	runner   Runner
	resolver Resolver
	logger   *slog.Logger
}

func NewTriggerHandler(r Runner, res Resolver, l *slog.Logger) *TriggerHandler {
	return &TriggerHandler{runner: r, resolver: res, logger: l}
}

// Handle executes cmd. A nil error means the command reached a final
// outcome (including blocked or failed runs, which are recorded in the
// import log) and can be acked.
func (h *TriggerHandler) Handle(ctx context.Context, cmd models.TriggerCommand) (err error) {
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = uuid.NewString()
	}
	start := time.Now()

	defer func() {
		status := "success"
		switch {
		case errors.Is(err, ErrPermanent):
			status = "rejected"
		case err != nil:
			status = "transient"
		}
		metrics.TriggerCommands.WithLabelValues(string(cmd.Action), status).Inc()
		metrics.TriggerDuration.WithLabelValues(string(cmd.Action)).Observe(time.Since(start).Seconds())
	}()

	l := h.logger.With("correlation_id", cmd.CorrelationID, "action", cmd.Action)

	if err := cmd.Validate(); err != nil {
		l.Error("Dropping invalid command", "error", err)
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	switch cmd.Action {
	case models.ActionRun:
		return h.run(ctx, cmd, l)
	case models.ActionApprove:
		_, err := h.resolver.Approve(ctx, cmd.ImportLogID, cmd.Actor)
		return h.resolution(err, cmd, l)
	default:
		_, err := h.resolver.Reject(ctx, cmd.ImportLogID, cmd.Actor, cmd.Reason)
		return h.resolution(err, cmd, l)
	}
}

func (h *TriggerHandler) run(ctx context.Context, cmd models.TriggerCommand, l *slog.Logger) error {
	res := h.runner.Run(ctx, service.Request{Trigger: cmd.Trigger, InvalidateCache: cmd.InvalidateCache})

	// A failure before any import log exists never ran; let the broker retry it.
	if res.Kind == service.ResultFailed && res.LogID == 0 {
		l.Warn("Run failed before starting", "step", res.Step, "error", res.Error)
		return fmt.Errorf("run did not start: %s", res.Error)
	}

	l.Info("Run command executed", "result", res.Kind, "import_log_id", res.LogID)
	return nil
}

func (h *TriggerHandler) resolution(err error, cmd models.TriggerCommand, l *slog.Logger) error {
	if err == nil {
		l.Info("Approval decision applied", "import_log_id", cmd.ImportLogID, "actor", cmd.Actor)
		return nil
	}
	if errors.Is(err, service.ErrNotAwaitingApproval) || errors.Is(err, models.ErrNotFound) {
		l.Warn("Approval decision no longer applicable", "import_log_id", cmd.ImportLogID, "error", err)
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return fmt.Errorf("%s import %d: %w", cmd.Action, cmd.ImportLogID, err)
}
