package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

type migration struct {
	version int
	name    string
	up      string
}

// migrations are applied in order; a version is never edited once released.
var migrations = []migration{
	{
		version: 1,
		name:    "create_time_capsules_table",
		up: `
			CREATE TABLE IF NOT EXISTS time_capsules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				is_active INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				exported_at TIMESTAMP,
				export_path TEXT
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_time_capsules_single_active
			ON time_capsules(is_active)
			WHERE is_active = 1;
		`,
	},
	{
		version: 2,
		name:    "create_capsule_entries_table",
		up: `
			CREATE TABLE IF NOT EXISTS capsule_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				capsule_id INTEGER NOT NULL REFERENCES time_capsules(id) ON DELETE CASCADE,
				date TEXT NOT NULL,
				day_number INTEGER NOT NULL CHECK (day_number BETWEEN 1 AND 30),
				mood TEXT NOT NULL,
				image_path TEXT NOT NULL,
				image_file_name TEXT NOT NULL,
				thumbnail_path TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE (capsule_id, date)
			);

			CREATE INDEX IF NOT EXISTS idx_capsule_entries_day
			ON capsule_entries(capsule_id, day_number);
		`,
	},
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
		log.Info().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.up); err != nil {
		return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
	}
	return nil
}
