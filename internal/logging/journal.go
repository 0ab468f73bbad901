package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS attempt_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	incident_id   TEXT NOT NULL,
	fingerprint   TEXT NOT NULL,
	attempt       INTEGER NOT NULL,
	action        TEXT NOT NULL,
	baseline      TEXT,
	message       TEXT,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region journal

// Journal records phase outcomes for later inspection.
type Journal struct {
	db *sql.DB
}

// NewJournal creates the attempt_log table if needed.
func NewJournal(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate attempt_log: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record implements the loop's recorder hook.
func (j *Journal) Record(ctx context.Context, entry AttemptEntry) error {
	return LogAttempt(ctx, j.db, entry)
}

// Recent returns the newest entries first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]AttemptEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT incident_id, fingerprint, attempt, action, baseline, message, created_at
		 FROM attempt_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptEntry
	for rows.Next() {
		var e AttemptEntry
		var baseline, message sql.NullString
		var created string
		if err := rows.Scan(&e.IncidentID, &e.Fingerprint, &e.Attempt, &e.Action, &baseline, &message, &created); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		e.Baseline = baseline.String
		e.Message = message.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion journal

// #region log-attempt

// LogAttempt writes an attempt entry to the attempt_log table.
func LogAttempt(ctx context.Context, db *sql.DB, entry AttemptEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO attempt_log (incident_id, fingerprint, attempt, action, baseline, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.IncidentID,
		entry.Fingerprint,
		entry.Attempt,
		entry.Action,
		nullIfEmpty(entry.Baseline),
		nullIfEmpty(entry.Message),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log attempt: %w", err)
	}
	return nil
}

// #endregion log-attempt

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
