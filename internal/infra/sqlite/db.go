// Package sqlite provides SQLite-based persistent storage for traction.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Tasks: one row per board item. sort_order ranks within
		// (owner_id, status) only.
		`CREATE TABLE IF NOT EXISTS tasks (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT NOT NULL,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			type             TEXT NOT NULL DEFAULT 'NORMAL',
			status           TEXT NOT NULL,
			priority         INTEGER NOT NULL DEFAULT 0,
			due_date         INTEGER,
			sort_order       INTEGER NOT NULL DEFAULT 0,
			total_time_spent INTEGER NOT NULL DEFAULT 0,
			is_timer_active  BOOLEAN DEFAULT 0,
			timer_started_at INTEGER,
			completed_at     INTEGER,
			completed_count  INTEGER NOT NULL DEFAULT 0,
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_column ON tasks(owner_id, status, sort_order)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_timer ON tasks(owner_id, is_timer_active)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(owner_id, completed_at)`,

		// Append-only status audit log
		`CREATE TABLE IF NOT EXISTS status_history (
			id          TEXT PRIMARY KEY,
			task_id     TEXT NOT NULL,
			from_status TEXT,
			to_status   TEXT NOT NULL,
			changed_at  INTEGER NOT NULL,
			note        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_task ON status_history(task_id, changed_at)`,

		// Timer sessions: end_time and duration are set together on close
		`CREATE TABLE IF NOT EXISTS time_entries (
			id          TEXT PRIMARY KEY,
			task_id     TEXT NOT NULL,
			start_time  INTEGER NOT NULL,
			end_time    INTEGER,
			duration    INTEGER,
			description TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_task ON time_entries(task_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_open ON time_entries(task_id) WHERE end_time IS NULL`,

		// Generated daily journals, one per (owner, day)
		`CREATE TABLE IF NOT EXISTS journals (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			date       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(owner_id, date)
		)`,

		// Opaque per-owner settings blob (JSON, decoded at the read boundary)
		`CREATE TABLE IF NOT EXISTS user_settings (
			owner_id   TEXT PRIMARY KEY,
			blob       TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
