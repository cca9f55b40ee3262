package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/pkg/infra"
	"github.com/Guizzs26/go-sync-hr/pkg/metrics"
)

// Scheduler fires scheduled triggers and reclaims stale runs. It blocks
// until the context is canceled.
type Scheduler struct {
	pipeline *Pipeline
	gate     *ScheduleGate
	logs     ImportLogStore
	tick     time.Duration
	sweep    time.Duration
	staleAge time.Duration
	backoff  *infra.Backoff
	logger   *slog.Logger
}

func NewScheduler(p *Pipeline, gate *ScheduleGate, logs ImportLogStore, tick, sweep, staleAge time.Duration, l *slog.Logger) *Scheduler {
	return &Scheduler{
		pipeline: p,
		gate:     gate,
		logs:     logs,
		tick:     tick,
		sweep:    sweep,
		staleAge: staleAge,
		backoff:  infra.NewBackoff(30*time.Second, 30*time.Minute, 2.0),
		logger:   l,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	janitor := time.NewTicker(s.sweep)
	defer janitor.Stop()

	s.logger.Info("Scheduler started", "tick", s.tick, "sweep", s.sweep, "stale_after", s.staleAge)
	s.Reclaim(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler shutting down...")
			return
		case <-janitor.C:
			s.Reclaim(ctx)
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs the pipeline when the schedule is due. A parked or in-flight
// run keeps the schedule due without advancing it, so Tick skips quietly
// while the mutex is held instead of raising a blocked notification on
// every tick. The backoff is left untouched on a skip.
func (s *Scheduler) Tick(ctx context.Context) {
	decision, err := s.gate.Check(ctx)
	if err != nil {
		s.logger.Error("Schedule check failed", "error", err)
		return
	}
	if !decision.Due {
		return
	}

	active, err := s.logs.FindActiveImport(ctx)
	if err != nil {
		s.logger.Error("Active import lookup failed", "error", err)
		return
	}
	if active != nil {
		s.logger.Debug("Scheduled run deferred, mutex held",
			"existing_id", active.ID,
			"existing_status", active.Status,
		)
		return
	}

	res := s.pipeline.Run(ctx, Request{Trigger: models.TriggerScheduled})
	switch res.Kind {
	case ResultFailed:
		s.logger.Warn("Scheduled run failed, backing off", "step", res.Step, "attempts", s.backoff.Attempts()+1)
		s.backoff.Wait(ctx)
	case ResultBlocked:
		// Lost the race to another process; the next tick sees its log.
	default:
		s.backoff.Reset()
	}
}

// Reclaim fails logs stuck in pending or analyzing past the stale age.
func (s *Scheduler) Reclaim(ctx context.Context) int64 {
	n, err := s.logs.ReclaimStaleImports(ctx, s.staleAge)
	if err != nil {
		s.logger.Error("Stale run sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		metrics.StaleRunsReclaimed.Add(float64(n))
		s.logger.Warn("Stale runs reclaimed", "count", n)
	}
	return n
}
