// Package statedb tracks cache writers in a SQLite registry.
//
// The cache file has exactly one legitimate publisher at a time. Rather than
// a lock file, writers register here with a heartbeat and elect among
// themselves; a writer that dies without resigning is superseded once its
// heartbeat goes stale. WAL mode plus a busy timeout keeps concurrent
// processes safe.
package statedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 1

// StateDB wraps the writer registry. Thread-safe within one process; multiple
// OS processes coordinate via WAL mode + busy timeout.
type StateDB struct {
	db  *sql.DB
	id  string
	pid int
}

// WriterRow describes one registered writer.
type WriterRow struct {
	ID        string
	PID       int
	Started   time.Time
	Heartbeat time.Time
	IsWriter  bool
}

// Open creates or opens the registry at dbPath with WAL mode and busy timeout.
// Each Open gets a fresh writer identity.
func Open(dbPath string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("statedb: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("statedb: open: %w", err)
	}

	// WAL mode: allows concurrent readers while writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: wal mode: %w", err)
	}

	// Busy timeout: wait up to 5s if another process holds a lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: busy timeout: %w", err)
	}

	return &StateDB{db: db, id: uuid.NewString(), pid: os.Getpid()}, nil
}

// Close checkpoints WAL and closes the database.
func (s *StateDB) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// DB returns the underlying sql.DB for advanced use cases (e.g., testing).
func (s *StateDB) DB() *sql.DB {
	return s.db
}

// ID returns this process's writer identity.
func (s *StateDB) ID() string {
	return s.id
}

// Migrate creates tables if they don't exist.
func (s *StateDB) Migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("statedb: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS writers (
			id        TEXT PRIMARY KEY,
			pid       INTEGER NOT NULL,
			started   INTEGER NOT NULL,
			heartbeat INTEGER NOT NULL,
			is_writer INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("statedb: create writers: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, fmt.Sprintf("%d", SchemaVersion)); err != nil {
		return fmt.Errorf("statedb: set schema version: %w", err)
	}

	return tx.Commit()
}

// --- Registration + heartbeat ---

// Register records this process in the writer registry.
func (s *StateDB) Register() error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO writers (id, pid, started, heartbeat, is_writer)
		VALUES (?, ?, ?, ?, 0)
	`, s.id, s.pid, now, now)
	return err
}

// Heartbeat refreshes this process's heartbeat timestamp.
func (s *StateDB) Heartbeat() error {
	_, err := s.db.Exec(
		"UPDATE writers SET heartbeat = ? WHERE id = ?",
		time.Now().Unix(), s.id,
	)
	return err
}

// Unregister removes this process from the registry.
func (s *StateDB) Unregister() error {
	_, err := s.db.Exec("DELETE FROM writers WHERE id = ?", s.id)
	return err
}

// CleanDead removes registrations whose heartbeat is older than timeout.
func (s *StateDB) CleanDead(timeout time.Duration) error {
	cutoff := time.Now().Add(-timeout).Unix()
	_, err := s.db.Exec("DELETE FROM writers WHERE heartbeat < ?", cutoff)
	return err
}

// AliveCount returns how many registrations have heartbeats fresher than timeout.
func (s *StateDB) AliveCount(timeout time.Duration) (int, error) {
	var count int
	cutoff := time.Now().Add(-timeout).Unix()
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM writers WHERE heartbeat >= ?", cutoff,
	).Scan(&count)
	return count, err
}

// --- Election ---

// Elect attempts to make this process the cache writer. Returns true if this
// process is now (or already was) the writer. Runs in a transaction so a
// stale writer is demoted and the seat claimed atomically.
func (s *StateDB) Elect(timeout time.Duration) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("statedb: begin elect: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := time.Now().Add(-timeout).Unix()

	// Demote any writer whose heartbeat went stale
	if _, err := tx.Exec(
		"UPDATE writers SET is_writer = 0 WHERE heartbeat < ? AND is_writer = 1",
		cutoff,
	); err != nil {
		return false, fmt.Errorf("statedb: demote stale writer: %w", err)
	}

	// Someone alive already holds the seat?
	var existingID string
	err = tx.QueryRow(
		"SELECT id FROM writers WHERE is_writer = 1 AND heartbeat >= ? LIMIT 1",
		cutoff,
	).Scan(&existingID)

	if err == nil {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("statedb: commit elect: %w", err)
		}
		return existingID == s.id, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("statedb: query writer: %w", err)
	}

	// Seat is free: claim it
	if _, err := tx.Exec(
		"UPDATE writers SET is_writer = 1 WHERE id = ?",
		s.id,
	); err != nil {
		return false, fmt.Errorf("statedb: claim writer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("statedb: commit elect: %w", err)
	}
	return true, nil
}

// Resign gives the writer seat up.
func (s *StateDB) Resign() error {
	_, err := s.db.Exec(
		"UPDATE writers SET is_writer = 0 WHERE id = ?",
		s.id,
	)
	return err
}

// CurrentWriter returns the writer holding the seat with a heartbeat fresher
// than timeout. ok=false when the seat is empty.
func (s *StateDB) CurrentWriter(timeout time.Duration) (WriterRow, bool, error) {
	cutoff := time.Now().Add(-timeout).Unix()

	var row WriterRow
	var started, heartbeat int64
	err := s.db.QueryRow(`
		SELECT id, pid, started, heartbeat FROM writers
		WHERE is_writer = 1 AND heartbeat >= ? LIMIT 1
	`, cutoff).Scan(&row.ID, &row.PID, &started, &heartbeat)
	if err == sql.ErrNoRows {
		return WriterRow{}, false, nil
	}
	if err != nil {
		return WriterRow{}, false, err
	}

	row.Started = time.Unix(started, 0)
	row.Heartbeat = time.Unix(heartbeat, 0)
	row.IsWriter = true
	return row, true, nil
}

// --- Metadata ---

// SetMeta sets a key-value pair in the metadata table.
func (s *StateDB) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta gets a value from the metadata table. Returns "" if not found.
func (s *StateDB) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
