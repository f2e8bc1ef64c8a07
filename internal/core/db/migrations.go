package db

import (
	"fmt"
)

// schemaVersion is stored in PRAGMA user_version once all migrations ran.
const schemaVersion = 2

// runMigrations applies database migrations for existing databases
func (db *DB) runMigrations() error {
	var version int
	if err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	// Migration 1: originator column (indexes created before Codex support)
	if err := db.addColumnIfMissing("sessions", "originator", "TEXT"); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}

	// Migration 2: tool identifiers for pairing uses with results
	if err := db.addColumnIfMissing("events", "tool_identifier", "TEXT"); err != nil {
		return fmt.Errorf("migration 002: %w", err)
	}

	if _, err := db.conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// addColumnIfMissing adds column to table unless it already exists
func (db *DB) addColumnIfMissing(table, column, decl string) error {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?)
		WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = db.conn.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl))
	if err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}
