package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// #region file-store

// FileStore keeps AgentState under Key inside a shared JSON cache document.
// Other keys in the document belong to other tools and are preserved on save.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the JSON document at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load returns the AgentState in the document, or the zero state if the file
// is missing, unreadable or not JSON.
func (f *FileStore) Load(_ context.Context) (AgentState, error) {
	doc := f.readDoc()
	raw, ok := doc[Key]
	if !ok {
		return AgentState{}, nil
	}
	var st AgentState
	if err := json.Unmarshal(raw, &st); err != nil {
		return AgentState{}, fmt.Errorf("unmarshal %s: %w", Key, err)
	}
	return st, nil
}

// Save reads the whole document, replaces Key and writes it back under a file lock.
func (f *FileStore) Save(_ context.Context, st AgentState) error {
	fl := flock.New(f.path + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquiring cache lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	doc := f.readDoc()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	doc[Key] = raw

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not held open.
func (f *FileStore) Close() error { return nil }

func (f *FileStore) readDoc() map[string]json.RawMessage {
	doc := make(map[string]json.RawMessage)
	data, err := os.ReadFile(f.path)
	if err != nil {
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return make(map[string]json.RawMessage)
	}
	return doc
}

// #endregion file-store

// #region memory-store

// MemoryStore is an in-process Store for tests and replay.
type MemoryStore struct {
	State AgentState
	Saves int
	Err   error // returned by Save when set
}

// NewMemoryStore starts from initial.
func NewMemoryStore(initial AgentState) *MemoryStore {
	return &MemoryStore{State: initial}
}

// Load returns the held state.
func (m *MemoryStore) Load(_ context.Context) (AgentState, error) {
	return m.State, nil
}

// Save replaces the held state and counts the write.
func (m *MemoryStore) Save(_ context.Context, st AgentState) error {
	if m.Err != nil {
		return m.Err
	}
	m.State = st
	m.Saves++
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// #endregion memory-store
