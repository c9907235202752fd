package storage

import (
	"database/sql"
	"fmt"
)

// migration is one versioned schema change.
type migration struct {
	Version int
	Up      string
}

// archiveMigrations are applied in order; never edit a released entry, add a
// new version instead.
var archiveMigrations = []migration{
	{
		Version: 1,
		Up: `CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			subject_id TEXT NOT NULL DEFAULT '',
			module_id TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX idx_events_time ON events(timestamp);
		CREATE INDEX idx_events_category ON events(category, timestamp);`,
	},
	{
		Version: 2,
		Up: `CREATE TABLE metric_windows (
			window_key TEXT NOT NULL,
			name TEXT NOT NULL,
			min_ms REAL NOT NULL,
			max_ms REAL NOT NULL,
			avg_ms REAL NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (window_key, name)
		);

		CREATE INDEX idx_metric_windows_name ON metric_windows(name, window_key);`,
	},
	{
		Version: 3,
		Up: `CREATE TABLE resources (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			module_id TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX idx_resources_owner_module ON resources(owner_id, module_id);`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, m := range archiveMigrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("failed to apply migration version %d: %w", m.Version, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.Up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}
