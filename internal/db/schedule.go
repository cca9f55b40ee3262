package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/jackc/pgx/v5"
)

// GetSchedule returns the singleton schedule; a manual default when never configured.
func (r *PostgresRepository) GetSchedule(ctx context.Context) (models.ScheduleConfig, error) {
	query := `
		SELECT frequency, day_of_week, run_time, last_run, next_run, updated_at
		FROM schedule_config
		WHERE id = 1
	`
	var (
		cfg       models.ScheduleConfig
		frequency string
		day       int16
	)
	err := r.pool.QueryRow(ctx, query).Scan(&frequency, &day, &cfg.RunTime, &cfg.LastRun, &cfg.NextRun, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ScheduleConfig{Frequency: models.FrequencyManual, DayOfWeek: time.Monday, RunTime: "02:00"}, nil
	}
	if err != nil {
		return models.ScheduleConfig{}, fmt.Errorf("failed to load schedule: %w", err)
	}
	cfg.Frequency = models.FrequencyFrom(frequency)
	cfg.DayOfWeek = time.Weekday(day)
	return cfg, nil
}

func (r *PostgresRepository) SaveSchedule(ctx context.Context, cfg models.ScheduleConfig) error {
	query := `
		INSERT INTO schedule_config (id, frequency, day_of_week, run_time, last_run, next_run, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE
		SET frequency = EXCLUDED.frequency,
		    day_of_week = EXCLUDED.day_of_week,
		    run_time = EXCLUDED.run_time,
		    last_run = EXCLUDED.last_run,
		    next_run = EXCLUDED.next_run,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, string(cfg.Frequency), int16(cfg.DayOfWeek), cfg.RunTime, cfg.LastRun, cfg.NextRun)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}
