package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/logger"
)

// Store persists cached templates in SQLite so a restart can pre-warm the
// cache instead of reclassifying every key.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the template database at path.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases from splitting per conn
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS templates (
			key        TEXT PRIMARY KEY,
			template   TEXT NOT NULL,
			stored_at  TEXT NOT NULL
		)
	`)
	return err
}

// Save upserts one entry.
func (s *Store) Save(e intent.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEntry(s.db, e)
}

// SaveAll upserts entries in one transaction.
func (s *Store) SaveAll(entries []intent.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, e := range entries {
		if err := saveEntry(tx, e); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit templates: %w", err)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func saveEntry(db execer, e intent.Entry) error {
	data, err := json.Marshal(e.Template)
	if err != nil {
		return fmt.Errorf("failed to marshal template %q: %w", e.Key, err)
	}
	if e.Template == nil {
		data = []byte("[]")
	}
	storedAt := e.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	_, err = db.Exec(`
		INSERT INTO templates (key, template, stored_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			template=excluded.template, stored_at=excluded.stored_at
	`, e.Key, string(data), storedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save template %q: %w", e.Key, err)
	}
	return nil
}

// LoadAll reads every stored entry ordered by key.
func (s *Store) LoadAll() ([]intent.Entry, error) {
	return s.load(time.Time{})
}

// LoadSince reads the entries stored at or after cutoff.
func (s *Store) LoadSince(cutoff time.Time) ([]intent.Entry, error) {
	return s.load(cutoff)
}

func (s *Store) load(cutoff time.Time) ([]intent.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT key, template, stored_at FROM templates ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	entries := []intent.Entry{}
	for rows.Next() {
		var key, raw, storedAt string
		if err := rows.Scan(&key, &raw, &storedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, storedAt)
		if err != nil {
			logger.Warn("[Store] Skipping %q: bad stored_at %q", key, storedAt)
			continue
		}
		if !cutoff.IsZero() && at.Before(cutoff) {
			continue
		}
		var tpl intent.Template
		if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
			logger.Warn("[Store] Skipping %q: %v", key, err)
			continue
		}
		if tpl == nil {
			tpl = intent.Template{}
		}
		entries = append(entries, intent.Entry{Key: key, Template: tpl, StoredAt: at})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return entries, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM templates WHERE key = ?`, key)
	return err
}

// Clear removes every stored template.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM templates`)
	return err
}

// Count returns the number of stored templates.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM templates`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Valid returns the entries whose templates still validate against actions,
// keeping their stored time. Invalid entries are skipped.
func Valid(entries []intent.Entry, actions *intent.ActionSet) []intent.Entry {
	out := make([]intent.Entry, 0, len(entries))
	for _, e := range entries {
		if err := e.Template.Validate(actions); err != nil {
			logger.Warn("[Store] Dropping stale template %q: %v", e.Key, err)
			continue
		}
		out = append(out, e)
	}
	return out
}
