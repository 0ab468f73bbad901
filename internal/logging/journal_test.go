package logging

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	return db
}

// #endregion helpers

// #region log-attempt-tests
func TestLogAttempt_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	j, err := NewJournal(db)
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}

	entry := AttemptEntry{
		IncidentID:  "inc-1",
		Fingerprint: "abc123",
		Attempt:     1,
		Action:      "promoted",
		Baseline:    "deadbeef",
		Message:     "smoke ok",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := j.Record(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM attempt_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var action, baseline string
	db.QueryRow("SELECT action, baseline FROM attempt_log").Scan(&action, &baseline)
	if action != "promoted" {
		t.Errorf("expected action 'promoted', got %q", action)
	}
	if baseline != "deadbeef" {
		t.Errorf("expected baseline 'deadbeef', got %q", baseline)
	}
}

func TestLogAttempt_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	if _, err := NewJournal(db); err != nil {
		t.Fatalf("NewJournal: %v", err)
	}

	before := time.Now().UTC()
	err := LogAttempt(context.Background(), db, AttemptEntry{IncidentID: "i", Fingerprint: "f", Attempt: 1, Action: "detected"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM attempt_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogAttempt_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	NewJournal(db)

	err := LogAttempt(context.Background(), db, AttemptEntry{IncidentID: "i", Fingerprint: "f", Attempt: 1, Action: "no_patch"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var baseline, message sql.NullString
	db.QueryRow("SELECT baseline, message FROM attempt_log").Scan(&baseline, &message)
	if baseline.Valid {
		t.Error("expected NULL baseline for empty string")
	}
	if message.Valid {
		t.Error("expected NULL message for empty string")
	}
}

func TestLogAttempt_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error
	err := LogAttempt(context.Background(), db, AttemptEntry{IncidentID: "i", Action: "detected"})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-attempt-tests

// #region recent-tests
func TestRecent_NewestFirst(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	j, _ := NewJournal(db)
	ctx := context.Background()

	for i, action := range []string{"detected", "build_failed", "promoted"} {
		j.Record(ctx, AttemptEntry{IncidentID: "inc", Fingerprint: "fp", Attempt: i, Action: action})
	}
	entries, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "promoted" || entries[1].Action != "build_failed" {
		t.Errorf("unexpected order: %s, %s", entries[0].Action, entries[1].Action)
	}
}

// #endregion recent-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
