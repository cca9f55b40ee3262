package models

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventBlocked          EventKind = "ingest.blocked"
	EventStructureChanged EventKind = "ingest.structure_changed"
	EventCompleted        EventKind = "ingest.completed"
	EventFailed           EventKind = "ingest.failed"
)

// Event is the payload every notification channel receives. Kind doubles as
// the broker routing key.
type Event struct {
	EventID    string    `json:"event_id"`
	Kind       EventKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`

	ImportLogID int64        `json:"import_log_id,omitempty"`
	Status      ImportStatus `json:"status,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`

	Diffs   []FileDiff  `json:"diffs,omitempty"`
	Summary *RunSummary `json:"summary,omitempty"`

	Message string `json:"message,omitempty"`
	Step    string `json:"step,omitempty"`
}

func newEvent(kind EventKind) Event {
	return Event{EventID: uuid.NewString(), Kind: kind, OccurredAt: time.Now().UTC()}
}

// BlockedEvent reports the run that currently holds the mutex.
func BlockedEvent(existing ImportLog) Event {
	e := newEvent(EventBlocked)
	e.ImportLogID = existing.ID
	e.Status = existing.Status
	started := existing.CreatedAt
	e.StartedAt = &started
	return e
}

func StructureChangedEvent(logID int64, diffs []FileDiff) Event {
	e := newEvent(EventStructureChanged)
	e.ImportLogID = logID
	e.Status = StatusAwaitingApproval
	e.Diffs = diffs
	return e
}

func CompletedEvent(logID int64, summary RunSummary) Event {
	e := newEvent(EventCompleted)
	e.ImportLogID = logID
	e.Status = StatusCompleted
	e.Summary = &summary
	return e
}

// FailedEvent carries the failing step; logID is zero when the run failed
// before its log existed.
func FailedEvent(logID int64, message, step string) Event {
	e := newEvent(EventFailed)
	e.ImportLogID = logID
	e.Status = StatusFailed
	e.Message = message
	e.Step = step
	return e
}
