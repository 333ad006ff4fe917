// Package store persists launch history in a local SQLite database. History
// is best effort: callers log store failures and never let them affect the
// launch outcome.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pylaunch/pylaunch/internal/report"
)

// Store is a SQLite-backed launch history.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates the database (and its parent directory) if needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
		}
	}

	// WAL plus a busy timeout keeps concurrent launches from tripping over
	// each other; a single connection serializes writes.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS launches (
		id TEXT PRIMARY KEY,
		module TEXT NOT NULL,
		args TEXT,
		pid INTEGER NOT NULL,
		venv_used BOOLEAN NOT NULL,
		exit_code INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_launches_started_at ON launches(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts one completed launch.
func (s *Store) Record(res *report.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args, err := json.Marshal(res.Args)
	if err != nil {
		return fmt.Errorf("failed to marshal args: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO launches
		(id, module, args, pid, venv_used, exit_code, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, res.ID, res.Module, string(args), res.PID, res.VenvUsed, res.ExitCode,
		res.StartTime, res.EndTime, res.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record launch: %w", err)
	}
	return nil
}

// Recent returns up to limit launches, newest first.
func (s *Store) Recent(limit int) ([]report.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, module, args, pid, venv_used, exit_code, started_at, finished_at, duration_ms
		FROM launches
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query launches: %w", err)
	}
	defer rows.Close()

	var results []report.Result
	for rows.Next() {
		var res report.Result
		var args string
		var durationMS int64
		if err := rows.Scan(&res.ID, &res.Module, &args, &res.PID, &res.VenvUsed,
			&res.ExitCode, &res.StartTime, &res.EndTime, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan launch: %w", err)
		}
		if args != "" {
			if err := json.Unmarshal([]byte(args), &res.Args); err != nil {
				return nil, fmt.Errorf("failed to unmarshal args: %w", err)
			}
		}
		res.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, res)
	}
	return results, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
