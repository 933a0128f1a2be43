package sqlindex

import (
	"database/sql"
	"fmt"
)

// schemaVersion gates runMigrations the way the teacher's store package
// gates its own schema: bump it and add a case whenever a new migration
// step is introduced.
const schemaVersion = 1

// runMigrations creates the index tables if absent and records the
// current schemaVersion, so future versions can detect and upgrade an
// older database on open.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS category_nodes (
			path TEXT PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS category_memories (
			category_path  TEXT NOT NULL,
			memory_path    TEXT NOT NULL,
			token_estimate INTEGER NOT NULL DEFAULT 0,
			summary        TEXT,
			updated_at     TEXT,
			expires_at     TEXT,
			PRIMARY KEY (category_path, memory_path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_category_memories_category ON category_memories(category_path);`,
		`CREATE INDEX IF NOT EXISTS idx_category_memories_expires ON category_memories(expires_at);`,
		`CREATE TABLE IF NOT EXISTS category_subcategories (
			parent_path  TEXT NOT NULL,
			child_path   TEXT NOT NULL,
			memory_count INTEGER NOT NULL DEFAULT 0,
			description  TEXT,
			PRIMARY KEY (parent_path, child_path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_category_subcategories_parent ON category_subcategories(parent_path);`,
		`CREATE TABLE IF NOT EXISTS category_descriptions (
			path        TEXT PRIMARY KEY,
			description TEXT NOT NULL
		);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}

	var current int
	err := db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'version'`).Scan(&current)
	if err == sql.ErrNoRows {
		_, err = db.Exec(`INSERT INTO schema_meta(key, value) VALUES ('version', ?)`, schemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current != schemaVersion {
		// No migration steps exist yet beyond version 1; a future bump
		// adds ALTER TABLE statements here, gated on current.
		_, err = db.Exec(`UPDATE schema_meta SET value = ? WHERE key = 'version'`, schemaVersion)
		return err
	}
	return nil
}
