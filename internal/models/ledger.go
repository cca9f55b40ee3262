package models

import "time"

// FileStructureSnapshot is the last accepted column layout of a source file.
type FileStructureSnapshot struct {
	Filename   string     `db:"filename"`
	DomainType DomainType `db:"domain_type"`
	Columns    []string   `db:"columns"`
	RowCount   int        `db:"row_count"`
	CapturedAt time.Time  `db:"captured_at"`
}

// FileVersion is an append-only ledger entry for one ingested file.
type FileVersion struct {
	ID           int64      `db:"id" json:"id"`
	Filename     string     `db:"filename" json:"filename"`
	DomainType   DomainType `db:"domain_type" json:"domain_type"`
	Checksum     string     `db:"checksum" json:"checksum"`
	VersionLabel string     `db:"version_label" json:"version_label"`
	RowCount     int        `db:"row_count" json:"row_count"`
	Columns      []string   `db:"columns" json:"columns"`
	ImportLogID  *int64     `db:"import_log_id" json:"import_log_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
