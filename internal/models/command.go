package models

import (
	"fmt"
	"time"
)

type CommandAction string

const (
	ActionRun     CommandAction = "run"
	ActionApprove CommandAction = "approve"
	ActionReject  CommandAction = "reject"
)

// TriggerCommand is a remote request consumed from the broker.
type TriggerCommand struct {
	CorrelationID string        `json:"correlation_id"`
	Action        CommandAction `json:"action"`
	IssuedAt      time.Time     `json:"issued_at"`

	// run
	Trigger         TriggerType `json:"trigger,omitempty"`
	InvalidateCache bool        `json:"invalidate_cache,omitempty"`

	// approve / reject
	ImportLogID int64  `json:"import_log_id,omitempty"`
	Actor       string `json:"actor,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Validate reports commands that can never succeed, whatever the store state.
func (c TriggerCommand) Validate() error {
	switch c.Action {
	case ActionRun:
		if c.Trigger != "" && c.Trigger != TriggerManual && c.Trigger != TriggerScheduled {
			return fmt.Errorf("unknown trigger %q", c.Trigger)
		}
		return nil
	case ActionApprove, ActionReject:
		if c.ImportLogID <= 0 {
			return fmt.Errorf("%s requires import_log_id", c.Action)
		}
		if c.Actor == "" {
			return fmt.Errorf("%s requires actor", c.Action)
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", c.Action)
}
