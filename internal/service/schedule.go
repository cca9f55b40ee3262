package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
)

const DefaultRunTime = "02:00"

// NormalizeRunTime clamps an "H:MM" string into HH:MM, falling back to 02:00.
func NormalizeRunTime(s string) string {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return DefaultRunTime
	}
	h, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errH != nil || errM != nil {
		return DefaultRunTime
	}
	return fmt.Sprintf("%02d:%02d", min(max(h, 0), 23), min(max(m, 0), 59))
}

// NormalizeSchedule returns cfg with a known frequency, weekday and run time.
func NormalizeSchedule(cfg models.ScheduleConfig) models.ScheduleConfig {
	cfg.Frequency = models.FrequencyFrom(string(cfg.Frequency))
	if cfg.DayOfWeek < time.Sunday || cfg.DayOfWeek > time.Saturday {
		cfg.DayOfWeek = time.Monday
	}
	cfg.RunTime = NormalizeRunTime(cfg.RunTime)
	return cfg
}

// ComputeNextRun returns the first run strictly after from, in from's
// location. Manual schedules never run and return nil.
func ComputeNextRun(cfg models.ScheduleConfig, from time.Time) *time.Time {
	cfg = NormalizeSchedule(cfg)
	hm := strings.Split(cfg.RunTime, ":")
	hour, _ := strconv.Atoi(hm[0])
	minute, _ := strconv.Atoi(hm[1])

	at := func(day time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, from.Location())
	}

	var next time.Time
	switch cfg.Frequency {
	case models.FrequencyDaily:
		next = at(from)
		if !next.After(from) {
			next = at(from.AddDate(0, 0, 1))
		}
	case models.FrequencyWeekly:
		offset := (int(cfg.DayOfWeek) - int(from.Weekday()) + 7) % 7
		next = at(from.AddDate(0, 0, offset))
		if !next.After(from) {
			next = at(from.AddDate(0, 0, offset+7))
		}
	case models.FrequencyMonthly:
		next = at(time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, from.Location()))
	default:
		return nil
	}
	return &next
}

// GateDecision is the outcome of checking a scheduled trigger.
type GateDecision struct {
	Due      bool
	Schedule models.ScheduleConfig
	// Reason is set when the run is skipped.
	Reason string
}

// ScheduleGate decides whether a scheduled trigger is due and advances the
// schedule after completed runs.
type ScheduleGate struct {
	store  ScheduleStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewScheduleGate(store ScheduleStore, loc *time.Location, l *slog.Logger) *ScheduleGate {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleGate{store: store, loc: loc, now: time.Now, logger: l}
}

// Check reads the schedule. A missing or stale nextRun is derived from now
// and persisted, so repeated checks before it fall due see the same value.
func (g *ScheduleGate) Check(ctx context.Context) (GateDecision, error) {
	cfg, err := g.store.GetSchedule(ctx)
	if err != nil {
		return GateDecision{}, err
	}
	cfg = NormalizeSchedule(cfg)
	now := g.now().In(g.loc)

	if cfg.Frequency == models.FrequencyManual {
		return GateDecision{Schedule: cfg, Reason: "schedule is manual"}, nil
	}

	if cfg.NextRun == nil || cfg.NextRun.IsZero() {
		cfg.NextRun = ComputeNextRun(cfg, now)
		if err := g.store.SaveSchedule(ctx, cfg); err != nil {
			return GateDecision{}, err
		}
		g.logger.Info("Schedule had no next run, computed one", "next_run", cfg.NextRun)
	}

	if now.Before(*cfg.NextRun) {
		return GateDecision{Schedule: cfg, Reason: "not due until " + cfg.NextRun.In(g.loc).Format(time.RFC3339)}, nil
	}
	return GateDecision{Due: true, Schedule: cfg}, nil
}

// Advance records a completed scheduled run.
func (g *ScheduleGate) Advance(ctx context.Context, cfg models.ScheduleConfig) (models.ScheduleConfig, error) {
	now := g.now().In(g.loc)
	cfg.LastRun = &now
	cfg.NextRun = ComputeNextRun(cfg, now)
	if err := g.store.SaveSchedule(ctx, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Update stores a new schedule definition and recomputes its next run.
func (g *ScheduleGate) Update(ctx context.Context, frequency models.Frequency, day time.Weekday, runTime string) (models.ScheduleConfig, error) {
	current, err := g.store.GetSchedule(ctx)
	if err != nil {
		return models.ScheduleConfig{}, err
	}
	cfg := NormalizeSchedule(models.ScheduleConfig{
		Frequency: frequency,
		DayOfWeek: day,
		RunTime:   runTime,
		LastRun:   current.LastRun,
	})
	cfg.NextRun = ComputeNextRun(cfg, g.now().In(g.loc))
	if err := g.store.SaveSchedule(ctx, cfg); err != nil {
		return models.ScheduleConfig{}, err
	}
	g.logger.Info("Schedule updated", "frequency", cfg.Frequency, "day", cfg.DayOfWeek, "run_time", cfg.RunTime, "next_run", cfg.NextRun)
	return cfg, nil
}

func (g *ScheduleGate) Current(ctx context.Context) (models.ScheduleConfig, error) {
	cfg, err := g.store.GetSchedule(ctx)
	if err != nil {
		return cfg, err
	}
	return NormalizeSchedule(cfg), nil
}
