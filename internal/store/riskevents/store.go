// Package riskevents persists the risk ledger's audit events and exported
// reports to sqlite for offline inspection. Strictly a diagnostics sink:
// nothing is ever read back into live state.
package riskevents

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"zeus/internal/risk"
)

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("risk event store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS risk_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			ts INTEGER NOT NULL,
			fields TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_events_ts ON risk_events(ts)`,
		`CREATE TABLE IF NOT EXISTS risk_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			report TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensuring schema failed: %w", err)
		}
	}
	return nil
}

// Append implements risk.EventSink.
func (s *Store) Append(ev risk.Event) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("risk event store not initialized")
	}
	fields, err := json.Marshal(ev.Fields)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO risk_events (id, type, ts, fields) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.Type, ev.Timestamp.UnixMilli(), string(fields),
	)
	return err
}

// SaveReport stores one exported risk report as a JSON blob.
func (s *Store) SaveReport(rep risk.Report) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("risk event store not initialized")
	}
	blob, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO risk_reports (ts, report) VALUES (?, ?)`,
		time.Now().UnixMilli(), string(blob),
	)
	return err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
