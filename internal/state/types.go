package state

import (
	"context"
	"time"
)

// #region action

// Action is the last phase outcome recorded for an incident.
type Action string

const (
	ActionNone            Action = ""
	ActionDetected        Action = "detected"
	ActionNoPatch         Action = "no_patch"
	ActionBlockedByPolicy Action = "blocked_by_policy"
	ActionApplyFailed     Action = "apply_failed"
	ActionBuildFailed     Action = "build_failed"
	ActionTestsFailed     Action = "tests_failed"
	ActionSmokeFailed     Action = "smoke_failed"
	ActionPromoted        Action = "promoted"
)

// Retryable reports whether the action rolls back and moves to the next attempt.
func (a Action) Retryable() bool {
	switch a {
	case ActionApplyFailed, ActionBuildFailed, ActionTestsFailed, ActionSmokeFailed:
		return true
	}
	return false
}

// #endregion action

// #region agent-state

// Key is the fixed document key the loop state lives under.
const Key = "autopilot"

// AgentState is the loop's persisted memory across ticks.
type AgentState struct {
	LastFingerprint string    `json:"lastFingerprint,omitempty"`
	LastSeenAt      time.Time `json:"lastSeenAt,omitzero"`
	Attempts        int       `json:"attempts"`
	LastAction      Action    `json:"lastAction,omitempty"`
	LastActionLog   string    `json:"lastActionLog,omitempty"`
}

// #endregion agent-state

// #region store-interface

// Store loads and saves the AgentState document.
type Store interface {
	Load(ctx context.Context) (AgentState, error)
	Save(ctx context.Context, s AgentState) error
	Close() error
}

// #endregion store-interface

// #region version-record

// VersionRecord is one saved snapshot in the SQLite history.
type VersionRecord struct {
	VersionID string
	State     AgentState
	CreatedAt time.Time
}

// #endregion version-record
