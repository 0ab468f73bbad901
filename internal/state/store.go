package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS agent_state (
	key           TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	doc           TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_state_versions (
	version_id    TEXT PRIMARY KEY,
	key           TEXT NOT NULL,
	doc           TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agent_state_versions_created
	ON agent_state_versions(created_at);
`

// #endregion schema

// #region store-struct

// SQLiteStore keeps the AgentState document in SQLite, overwritten in place
// under Key, with every save also appended to a history table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor

// NewSQLiteStore opens a SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// #endregion constructor

// #region close

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region load

// Load reads the active document. A missing row is the zero state.
func (s *SQLiteStore) Load(ctx context.Context) (AgentState, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM agent_state WHERE key = ?`, Key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return AgentState{}, nil
	}
	if err != nil {
		return AgentState{}, fmt.Errorf("load state: %w", err)
	}
	var st AgentState
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return AgentState{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return st, nil
}

// #endregion load

// #region save

// Save overwrites the active document and records a history version atomically.
func (s *SQLiteStore) Save(ctx context.Context, st AgentState) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	id := uuid.New().String()
	now := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO agent_state_versions (version_id, key, doc, created_at) VALUES (?, ?, ?, ?)`,
		id, Key, string(doc), now,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO agent_state (key, version_id, doc, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET version_id = excluded.version_id,
		 doc = excluded.doc, updated_at = excluded.updated_at`,
		Key, id, string(doc), now,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion save

// #region list-versions

// ListVersions returns the most recent saved snapshots, newest first.
func (s *SQLiteStore) ListVersions(ctx context.Context, limit int) ([]VersionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version_id, doc, created_at FROM agent_state_versions
		 WHERE key = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, Key, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []VersionRecord
	for rows.Next() {
		var rec VersionRecord
		var doc, createdStr string
		if err := rows.Scan(&rec.VersionID, &doc, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(doc), &rec.State); err != nil {
			return nil, fmt.Errorf("unmarshal version %s: %w", rec.VersionID, err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions
