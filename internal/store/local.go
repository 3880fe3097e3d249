// Package store keeps client-side state across CLI runs in a local SQLite
// database: the onboarded profile, the session cookies, the held draft and
// the journal of publish outcomes. Campaigns themselves live in the
// persistence service and are never cached here.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"campaigner/internal/logging"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// LocalStore is the SQLite-backed client state.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	now    func() time.Time
}

// NewLocalStore opens (creating if needed) the database at path.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("Initializing LocalStore at path: %s", path)

	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: a second one would see a different :memory: database,
	// and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}

	store := &LocalStore{db: db, dbPath: path, now: time.Now}
	if err := store.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.StoreDebug("LocalStore ready")
	return store, nil
}

// initialize creates the required tables.
func (s *LocalStore) initialize() error {
	// Single-row tables: the onboarded profile and the held draft.
	profileTable := `
	CREATE TABLE IF NOT EXISTS profile (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	draftTable := `
	CREATE TABLE IF NOT EXISTS draft (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		draft_id TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	cookieTable := `
	CREATE TABLE IF NOT EXISTS cookies (
		origin TEXT NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '/',
		value TEXT NOT NULL,
		domain TEXT NOT NULL DEFAULT '',
		expires TEXT NOT NULL DEFAULT '',
		secure INTEGER NOT NULL DEFAULT 0,
		http_only INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (origin, name, path)
	);
	`

	publishTable := `
	CREATE TABLE IF NOT EXISTS publish_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		phase TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_publish_campaign ON publish_log(campaign_id);
	`

	// One row per key while a run is publishing it.
	claimTable := `
	CREATE TABLE IF NOT EXISTS publish_claims (
		campaign_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		token TEXT NOT NULL,
		claimed_at INTEGER NOT NULL,
		PRIMARY KEY (campaign_id, platform)
	);
	`

	for _, table := range []string{profileTable, draftTable, cookieTable, publishTable, claimTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database location.
func (s *LocalStore) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// GetStats returns row counts per table.
func (s *LocalStore) GetStats() (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetStats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"profile", "draft", "cookies", "publish_log", "publish_claims"} {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

func (s *LocalStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		logging.StoreDebug("Ignoring unparsable timestamp %q: %v", v, err)
		return time.Time{}
	}
	return t
}
