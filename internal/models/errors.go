package models

import "errors"

var (
	// ErrActiveImportExists is returned when another log already holds the ingestion mutex.
	ErrActiveImportExists = errors.New("another import is in flight")
	// ErrStatusConflict is returned when a log is no longer in the state a transition expects.
	ErrStatusConflict = errors.New("import log status changed concurrently")
	ErrNotFound       = errors.New("not found")
	// ErrRunReclaimed aborts a run whose log was released under it, usually by the stale-run janitor.
	ErrRunReclaimed = errors.New("import log is no longer owned by this run")
)

// ImportLogUpdate carries the optional fields written alongside a status transition.
type ImportLogUpdate struct {
	StructuralDiff []FileDiff
	Results        *RunSummary
	ErrorMessage   string
	ApprovedBy     string
	Resolve        bool
}
