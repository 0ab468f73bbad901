package logging

import "time"

// #region attempt-entry
// AttemptEntry is a single row in the attempt_log table.
type AttemptEntry struct {
	IncidentID  string
	Fingerprint string
	Attempt     int
	Action      string // "detected" | "no_patch" | ... | "promoted"
	Baseline    string
	Message     string
	CreatedAt   time.Time
}
// #endregion attempt-entry
