package store

import (
	"context"
	"fmt"
)

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// migrate creates the schema and records its version.
func (s *Store) migrate(ctx context.Context) error {
	steps := []struct {
		name   string
		schema string
	}{
		{"snapshots", `
		CREATE TABLE IF NOT EXISTS snapshots (
			owner       TEXT NOT NULL,
			package_id  TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			synced_at   TEXT NOT NULL,
			codec       TEXT NOT NULL,
			blob        BLOB NOT NULL,
			updated_at  TEXT NOT NULL,
			PRIMARY KEY (owner, package_id)
		);`},
		{"actions", `
		CREATE TABLE IF NOT EXISTS actions (
			id            INTEGER PRIMARY KEY,
			action_id     TEXT NOT NULL UNIQUE,
			kind          TEXT NOT NULL,
			owner         TEXT NOT NULL,
			package_id    TEXT NOT NULL,
			intent_digest TEXT,
			digest        TEXT,
			outcome       TEXT NOT NULL,
			created_id    TEXT,
			message       TEXT,
			warning       TEXT,
			created_at    TEXT NOT NULL,
			settled_at    TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_actions_created ON actions(created_at, id);
		CREATE INDEX IF NOT EXISTS idx_actions_owner_created ON actions(owner, created_at);
		CREATE INDEX IF NOT EXISTS idx_actions_outcome ON actions(outcome);`},
		{"prefs", `
		CREATE TABLE IF NOT EXISTS prefs (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`},
		{"recent_events", `
		CREATE TABLE IF NOT EXISTS recent_events (
			event_id  TEXT PRIMARY KEY,
			opened_at TEXT NOT NULL
		);`},
		{"malformed_objects", `
		CREATE TABLE IF NOT EXISTS malformed_objects (
			id          INTEGER PRIMARY KEY,
			ts          TEXT NOT NULL,
			object_id   TEXT NOT NULL,
			object_type TEXT NOT NULL,
			version     TEXT,
			fields_json TEXT,
			dedupe_key  TEXT NOT NULL UNIQUE
		);`},
		{"metadata", `
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`},
	}

	for _, st := range steps {
		if _, err := s.db.ExecContext(ctx, st.schema); err != nil {
			return fmt.Errorf("create %s table: %w", st.name, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// schemaVersion returns PRAGMA user_version (for testing).
func (s *Store) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}
