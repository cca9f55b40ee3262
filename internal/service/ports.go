package service

import (
	"context"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
)

// ImportLogStore persists the audit trail and the ingestion mutex.
type ImportLogStore interface {
	FindActiveImport(ctx context.Context) (*models.ImportLog, error)
	CreateImportLog(ctx context.Context, trigger models.TriggerType) (models.ImportLog, error)
	TransitionImportLog(ctx context.Context, id int64, from, to models.ImportStatus, u models.ImportLogUpdate) error
	GetImportLog(ctx context.Context, id int64) (models.ImportLog, error)
	ListImportLogs(ctx context.Context, statuses []models.ImportStatus, limit int) ([]models.ImportLog, error)
	ReclaimStaleImports(ctx context.Context, maxAge time.Duration) (int64, error)
	// TouchImportLog is the heartbeat of a running import. It returns
	// models.ErrStatusConflict when the log is no longer in status.
	TouchImportLog(ctx context.Context, id int64, status models.ImportStatus) error
}

type SnapshotStore interface {
	GetSnapshot(ctx context.Context, filename string, domain models.DomainType) (*models.FileStructureSnapshot, error)
	SaveSnapshot(ctx context.Context, snap models.FileStructureSnapshot) error
}

type VersionStore interface {
	AppendFileVersion(ctx context.Context, v models.FileVersion) (models.FileVersion, error)
	LatestFileVersion(ctx context.Context, filename string) (*models.FileVersion, error)
	ListFileVersions(ctx context.Context, filename string, limit int) ([]models.FileVersion, error)
}

type ScheduleStore interface {
	GetSchedule(ctx context.Context) (models.ScheduleConfig, error)
	SaveSchedule(ctx context.Context, cfg models.ScheduleConfig) error
}

// RecordStore writes canonical records. Every call is its own atomic unit.
type RecordStore interface {
	UpsertEmployees(ctx context.Context, batch []models.EmployeeRecord) (inserted, updated int, err error)
	DeleteTerminations(ctx context.Context, keys []models.TerminationKey) (int64, error)
	InsertTerminations(ctx context.Context, batch []models.TerminationRecord) (int, error)
	DeleteIncidentsBetween(ctx context.Context, from, to time.Time) (int64, error)
	InsertIncidents(ctx context.Context, batch []models.IncidentRecord) (int, error)
	DeletePayrollWeeks(ctx context.Context, weeks []time.Time) (int64, error)
	InsertPayrollPreweeks(ctx context.Context, batch []models.PayrollPreweekRecord) (int, error)
}

// Store is everything the pipeline needs from persistence.
type Store interface {
	ImportLogStore
	SnapshotStore
	VersionStore
	ScheduleStore
	RecordStore
}

// FileSource lists and downloads raw extracts.
type FileSource interface {
	ListFiles(ctx context.Context) ([]models.RemoteFile, error)
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// CacheInvalidator is implemented by sources that keep a download cache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int, error)
}

// Notifier delivers pipeline events. Delivery failures are the notifier's
// concern and never reach the run.
type Notifier interface {
	Notify(ctx context.Context, e models.Event)
}
