package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/jackc/pgx/v5"
)

// GetSnapshot returns the stored layout for a file key, or nil on first sight.
func (r *PostgresRepository) GetSnapshot(ctx context.Context, filename string, domain models.DomainType) (*models.FileStructureSnapshot, error) {
	query := `
		SELECT filename, domain_type, columns, row_count, captured_at
		FROM file_structure_snapshots
		WHERE filename = $1 AND domain_type = $2
	`
	var (
		snap       models.FileStructureSnapshot
		domainType string
	)
	err := r.pool.QueryRow(ctx, query, filename, string(domain)).Scan(
		&snap.Filename,
		&domainType,
		&snap.Columns,
		&snap.RowCount,
		&snap.CapturedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", filename, err)
	}
	snap.DomainType = models.DomainType(domainType)
	return &snap, nil
}

// SaveSnapshot overwrites the layout of a file key.
func (r *PostgresRepository) SaveSnapshot(ctx context.Context, snap models.FileStructureSnapshot) error {
	query := `
		INSERT INTO file_structure_snapshots (filename, domain_type, columns, row_count, captured_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (filename, domain_type) DO UPDATE
		SET columns = EXCLUDED.columns,
		    row_count = EXCLUDED.row_count,
		    captured_at = EXCLUDED.captured_at
	`
	if _, err := r.pool.Exec(ctx, query, snap.Filename, string(snap.DomainType), snap.Columns, snap.RowCount); err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", snap.Filename, err)
	}
	return nil
}

// AppendFileVersion inserts an immutable ledger entry.
func (r *PostgresRepository) AppendFileVersion(ctx context.Context, v models.FileVersion) (models.FileVersion, error) {
	query := `
		INSERT INTO file_versions (filename, domain_type, checksum, version_label, row_count, columns, import_log_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		v.Filename,
		string(v.DomainType),
		v.Checksum,
		v.VersionLabel,
		v.RowCount,
		v.Columns,
		v.ImportLogID,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return v, fmt.Errorf("failed to append version for %s: %w", v.Filename, err)
	}
	return v, nil
}

// ListFileVersions returns the ledger of a file, newest first.
func (r *PostgresRepository) ListFileVersions(ctx context.Context, filename string, limit int) ([]models.FileVersion, error) {
	query := `
		SELECT id, filename, domain_type, checksum, version_label, row_count, columns, import_log_id, created_at
		FROM file_versions
		WHERE filename = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, filename, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for %s: %w", filename, err)
	}
	defer rows.Close()

	var versions []models.FileVersion
	for rows.Next() {
		var (
			v          models.FileVersion
			domainType string
		)
		if err := rows.Scan(&v.ID, &v.Filename, &domainType, &v.Checksum, &v.VersionLabel, &v.RowCount, &v.Columns, &v.ImportLogID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		v.DomainType = models.DomainType(domainType)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// LatestFileVersion returns the newest ledger entry for filename, or nil.
func (r *PostgresRepository) LatestFileVersion(ctx context.Context, filename string) (*models.FileVersion, error) {
	versions, err := r.ListFileVersions(ctx, filename, 1)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return &versions[0], nil
}
