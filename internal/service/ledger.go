package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
	// nilValue keeps a missing cell apart from an empty one.
	nilValue = "\x00"
)

// Checksum hashes the canonical row set: the header in source order, then
// each row's values in header order.
func Checksum(t models.Table) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(t.Columns, fieldSep)))
	for _, row := range t.Rows {
		h.Write([]byte(recordSep))
		for i, col := range t.Columns {
			if i > 0 {
				h.Write([]byte(fieldSep))
			}
			h.Write([]byte(canonicalValue(row[col])))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func canonicalValue(v any) string {
	switch x := v.(type) {
	case nil:
		return nilValue
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// VersionLabel renders "<name>_YYYY_MM_DD_HH_MM_SS<ext>".
func VersionLabel(filename string, at time.Time) string {
	base := path.Base(filename)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + at.Format("2006_01_02_15_04_05") + ext
}

// Ledger appends file versions and refreshes snapshots after a successful write.
type Ledger struct {
	versions  VersionStore
	snapshots SnapshotStore
	now       func() time.Time
}

func NewLedger(v VersionStore, s SnapshotStore) *Ledger {
	return &Ledger{versions: v, snapshots: s, now: time.Now}
}

// Record versions the exact table that was written. An unchanged checksum
// still gets an entry so every ingestion is auditable; the result flags it.
func (l *Ledger) Record(ctx context.Context, cmp Comparison, logID int64) (models.FileResult, error) {
	sum := Checksum(cmp.Table)
	res := models.FileResult{Filename: cmp.File.Name, Domain: cmp.File.Domain, Checksum: sum}

	latest, err := l.versions.LatestFileVersion(ctx, cmp.File.Name)
	if err != nil {
		return res, fmt.Errorf("load latest version: %w", err)
	}
	res.Unchanged = latest != nil && latest.Checksum == sum

	id := logID
	v, err := l.versions.AppendFileVersion(ctx, models.FileVersion{
		Filename:     cmp.File.Name,
		DomainType:   cmp.File.Domain,
		Checksum:     sum,
		VersionLabel: VersionLabel(cmp.File.Name, l.now()),
		RowCount:     len(cmp.Table.Rows),
		Columns:      cmp.Table.Columns,
		ImportLogID:  &id,
	})
	if err != nil {
		return res, fmt.Errorf("append version: %w", err)
	}
	res.VersionLabel = v.VersionLabel

	if err := l.snapshots.SaveSnapshot(ctx, cmp.Snapshot()); err != nil {
		return res, fmt.Errorf("refresh snapshot: %w", err)
	}
	return res, nil
}

// History lists a file's versions, newest first.
func (l *Ledger) History(ctx context.Context, filename string, limit int) ([]models.FileVersion, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.versions.ListFileVersions(ctx, filename, limit)
}
