package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/jackc/pgx/v5"
)

const importLogColumns = `id, trigger_type, status, structural_diff, results, error_message, approved_by, created_at, resolved_at`

// FindActiveImport returns the log holding the ingestion mutex, or nil.
func (r *PostgresRepository) FindActiveImport(ctx context.Context) (*models.ImportLog, error) {
	query := `SELECT ` + importLogColumns + `
		FROM import_logs
		WHERE status = ANY($1)
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.pool.QueryRow(ctx, query, statusStrings(models.ActiveStatuses))
	log, err := scanImportLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active import: %w", err)
	}
	return &log, nil
}

// CreateImportLog inserts a pending log. The partial unique index makes the
// insert the atomic test-and-set of the mutex.
func (r *PostgresRepository) CreateImportLog(ctx context.Context, trigger models.TriggerType) (models.ImportLog, error) {
	query := `INSERT INTO import_logs (trigger_type, status)
		VALUES ($1, $2)
		RETURNING ` + importLogColumns

	log, err := scanImportLog(r.pool.QueryRow(ctx, query, string(trigger), string(models.StatusPending)))
	if err != nil {
		if isUniqueViolation(err, "import_logs_single_active") {
			return models.ImportLog{}, models.ErrActiveImportExists
		}
		return models.ImportLog{}, fmt.Errorf("failed to create import log: %w", err)
	}
	return log, nil
}

// TransitionImportLog moves a log from one status to another, failing with
// models.ErrStatusConflict when the log is no longer in `from`.
func (r *PostgresRepository) TransitionImportLog(ctx context.Context, id int64, from, to models.ImportStatus, u models.ImportLogUpdate) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}

	var diff, results []byte
	var err error
	if u.StructuralDiff != nil {
		if diff, err = json.Marshal(u.StructuralDiff); err != nil {
			return fmt.Errorf("failed to encode structural diff: %w", err)
		}
	}
	if u.Results != nil {
		if results, err = json.Marshal(u.Results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	}

	query := `
		UPDATE import_logs
		SET status = $3,
		    structural_diff = COALESCE($4::jsonb, structural_diff),
		    results = COALESCE($5::jsonb, results),
		    error_message = CASE WHEN $6 = '' THEN error_message ELSE $6 END,
		    approved_by = CASE WHEN $7 = '' THEN approved_by ELSE $7 END,
		    resolved_at = CASE WHEN $8 THEN CURRENT_TIMESTAMP ELSE resolved_at END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, string(from), string(to), diff, results, u.ErrorMessage, u.ApprovedBy, u.Resolve)
	if err != nil {
		return fmt.Errorf("failed to transition import log %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStatusConflict
	}
	return nil
}

func (r *PostgresRepository) GetImportLog(ctx context.Context, id int64) (models.ImportLog, error) {
	query := `SELECT ` + importLogColumns + ` FROM import_logs WHERE id = $1`

	log, err := scanImportLog(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ImportLog{}, models.ErrNotFound
	}
	if err != nil {
		return models.ImportLog{}, fmt.Errorf("failed to load import log %d: %w", id, err)
	}
	return log, nil
}

func (r *PostgresRepository) ListImportLogs(ctx context.Context, statuses []models.ImportStatus, limit int) ([]models.ImportLog, error) {
	query := `SELECT ` + importLogColumns + `
		FROM import_logs
		WHERE status = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, statusStrings(statuses), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ImportLog
	for rows.Next() {
		log, err := scanImportLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// TouchImportLog refreshes updated_at so the janitor sees the run as alive.
// It fails with models.ErrStatusConflict once the log left status.
func (r *PostgresRepository) TouchImportLog(ctx context.Context, id int64, status models.ImportStatus) error {
	query := `UPDATE import_logs SET updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND status = $2`

	tag, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to touch import log %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStatusConflict
	}
	return nil
}

// ReclaimStaleImports fails logs stuck in pending/analyzing longer than maxAge.
// awaiting_approval waits for a human and is never reclaimed.
func (r *PostgresRepository) ReclaimStaleImports(ctx context.Context, maxAge time.Duration) (int64, error) {
	query := `
		UPDATE import_logs
		SET status = 'failed',
		    error_message = 'stale run reclaimed',
		    resolved_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE status IN ('pending', 'analyzing')
		  AND updated_at < CURRENT_TIMESTAMP - make_interval(secs => $1)
	`
	tag, err := r.pool.Exec(ctx, query, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale imports: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanImportLog(row pgx.Row) (models.ImportLog, error) {
	var (
		log             models.ImportLog
		trigger, status string
		diff, results   []byte
	)
	err := row.Scan(
		&log.ID,
		&trigger,
		&status,
		&diff,
		&results,
		&log.ErrorMessage,
		&log.ApprovedBy,
		&log.CreatedAt,
		&log.ResolvedAt,
	)
	if err != nil {
		return log, err
	}

	if log.Status, err = models.ImportStatusFrom(status); err != nil {
		return log, err
	}
	if log.TriggerType, err = models.TriggerTypeFrom(trigger); err != nil {
		return log, err
	}
	if len(diff) > 0 {
		if err := json.Unmarshal(diff, &log.StructuralDiff); err != nil {
			return log, fmt.Errorf("decode structural_diff: %w", err)
		}
	}
	if len(results) > 0 {
		log.Results = &models.RunSummary{}
		if err := json.Unmarshal(results, log.Results); err != nil {
			return log, fmt.Errorf("decode results: %w", err)
		}
	}
	return log, nil
}

func statusStrings(statuses []models.ImportStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
