package models

import (
	"fmt"
	"time"
)

// ImportStatus is the lifecycle state of an ingestion attempt.
type ImportStatus string

const (
	StatusPending          ImportStatus = "pending"
	StatusAnalyzing        ImportStatus = "analyzing"
	StatusAwaitingApproval ImportStatus = "awaiting_approval"
	StatusCompleted        ImportStatus = "completed"
	StatusFailed           ImportStatus = "failed"
)

// ActiveStatuses are the states that hold the global ingestion mutex.
var ActiveStatuses = []ImportStatus{StatusPending, StatusAnalyzing, StatusAwaitingApproval}

// ImportStatusFrom parses a persisted status value.
func ImportStatusFrom(s string) (ImportStatus, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "analyzing":
		return StatusAnalyzing, nil
	case "awaiting_approval":
		return StatusAwaitingApproval, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	}
	return "", fmt.Errorf("unknown import status %q", s)
}

// IsActive reports whether a log in this state blocks new runs.
func (s ImportStatus) IsActive() bool {
	switch s {
	case StatusPending, StatusAnalyzing, StatusAwaitingApproval:
		return true
	case StatusCompleted, StatusFailed:
		return false
	}
	return false
}

// CanTransition enforces pending -> analyzing -> {awaiting_approval | completed | failed}.
// awaiting_approval is resolved by an approval decision (completed) or rejection (failed).
func (s ImportStatus) CanTransition(to ImportStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusAnalyzing || to == StatusFailed
	case StatusAnalyzing:
		return to == StatusAwaitingApproval || to == StatusCompleted || to == StatusFailed
	case StatusAwaitingApproval:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusFailed:
		return false
	}
	return false
}

type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
)

func TriggerTypeFrom(s string) (TriggerType, error) {
	switch s {
	case "", "manual":
		return TriggerManual, nil
	case "scheduled":
		return TriggerScheduled, nil
	}
	return "", fmt.Errorf("unknown trigger type %q", s)
}

// FileDiff is the column drift detected for one source file.
type FileDiff struct {
	Filename   string     `json:"filename"`
	DomainType DomainType `json:"domain_type"`
	Added      []string   `json:"added"`
	Removed    []string   `json:"removed"`
	// Columns is the observed layout, accepted as the new snapshot on approval.
	Columns  []string `json:"columns"`
	RowCount int      `json:"row_count"`
}

// ImportLog is the audit row of one ingestion attempt. Never deleted.
type ImportLog struct {
	ID             int64        `db:"id" json:"id"`
	TriggerType    TriggerType  `db:"trigger_type" json:"trigger_type"`
	Status         ImportStatus `db:"status" json:"status"`
	StructuralDiff []FileDiff   `db:"structural_diff" json:"structural_diff"`
	Results        *RunSummary  `db:"results" json:"results,omitempty"`
	ErrorMessage   string       `db:"error_message" json:"error_message,omitempty"`
	ApprovedBy     string       `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	ResolvedAt     *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
}
