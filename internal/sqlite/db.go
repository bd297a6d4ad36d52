// Package sqlite persists the reference activity store in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New opens a SQLite database. A single connection is used so pragmas and
// in-memory databases are shared by every query.
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &DB{db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    scheduled_date TEXT NOT NULL DEFAULT '',
    ranger_id TEXT NOT NULL,
    state TEXT NOT NULL CHECK(state IN ('scheduled', 'in_progress', 'completed')),
    start_time TEXT,
    start_lat REAL,
    start_lng REAL,
    end_time TEXT,
    end_lat REAL,
    end_lng REAL,
    observations TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_ranger ON activities(ranger_id, state);

CREATE TABLE IF NOT EXISTS route_points (
    id TEXT PRIMARY KEY,
    activity_id TEXT NOT NULL,
    client_ref TEXT,
    lat REAL NOT NULL,
    lng REAL NOT NULL,
    recorded_at TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    UNIQUE (activity_id, client_ref),
    FOREIGN KEY (activity_id) REFERENCES activities(id)
);
CREATE INDEX IF NOT EXISTS idx_route_points_activity ON route_points(activity_id, recorded_at);

CREATE TABLE IF NOT EXISTS findings (
    id TEXT PRIMARY KEY,
    activity_id TEXT,
    client_ref TEXT,
    ranger_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    severity TEXT NOT NULL CHECK(severity IN ('low', 'moderate', 'severe', 'critical')),
    status TEXT NOT NULL CHECK(status IN ('reported', 'in_review', 'resolved')),
    lat REAL NOT NULL,
    lng REAL NOT NULL,
    reported_at TEXT NOT NULL,
    resolved_at TEXT,
    UNIQUE (ranger_id, client_ref),
    FOREIGN KEY (activity_id) REFERENCES activities(id)
);
CREATE INDEX IF NOT EXISTS idx_findings_activity ON findings(activity_id);
CREATE INDEX IF NOT EXISTS idx_findings_ranger ON findings(ranger_id, reported_at);

CREATE TABLE IF NOT EXISTS finding_follow_ups (
    finding_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    at TEXT NOT NULL,
    action TEXT NOT NULL,
    actor TEXT NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (finding_id, seq),
    FOREIGN KEY (finding_id) REFERENCES findings(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    activity_id TEXT NOT NULL,
    client_ref TEXT NOT NULL,
    url TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    captured_at TEXT NOT NULL,
    UNIQUE (activity_id, client_ref),
    FOREIGN KEY (activity_id) REFERENCES activities(id)
);
`

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
