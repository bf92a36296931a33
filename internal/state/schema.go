// Package state remembers which templates passed analysis so unchanged ones
// can be skipped by incremental runs.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is written to state_metadata when the schema is created.
const SchemaVersion = "1"

// CreateSchema creates the state tables inside one transaction.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"templates", createTemplatesTable},
		{"state_metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	if _, err := tx.Exec(createTemplatesIndex); err != nil {
		return fmt.Errorf("failed to create templates index: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO state_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap state_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion returns "0" for a database without the state tables.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='state_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check state_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM state_metadata WHERE key = 'schema_version'").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("schema_version key not found in state_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createTemplatesTable = `
CREATE TABLE IF NOT EXISTS templates (
    path TEXT PRIMARY KEY,          -- Slash separated, relative to the project root
    content_hash TEXT NOT NULL,     -- SHA-256 of the template when it was checked
    size_bytes INTEGER NOT NULL DEFAULT 0,
    last_modified TEXT NOT NULL,    -- RFC 3339 mtime from the filesystem
    exit_code INTEGER NOT NULL,     -- Analyzer exit status of the run that checked it
    checked_at TEXT NOT NULL        -- RFC 3339 time of that run
)
`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS state_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

const createTemplatesIndex = `CREATE INDEX IF NOT EXISTS idx_templates_exit_code ON templates(exit_code)`
