package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises writers, which makes UpdateSyncStatus atomic
	// across goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Initialize creates the necessary tables if they don't exist
func (db *DB) Initialize() error {
	if err := db.createAccountLinksTable(); err != nil {
		return err
	}
	if err := db.createSyncStatusTable(); err != nil {
		return err
	}
	return nil
}

func (db *DB) createAccountLinksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS account_links (
		lunchmoney_id INTEGER NOT NULL,
		gocardless_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (lunchmoney_id, gocardless_id)
	)
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create account_links table: %w", err)
	}
	return nil
}

func (db *DB) createSyncStatusTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS sync_status (
		account_id TEXT PRIMARY KEY,
		last_sync TIMESTAMP,
		last_sync_status TEXT NOT NULL DEFAULT 'none',
		last_sync_transactions INTEGER NOT NULL DEFAULT 0,
		is_syncing BOOLEAN NOT NULL DEFAULT false,
		rate_limit_limit INTEGER NOT NULL DEFAULT -1,
		rate_limit_remaining INTEGER NOT NULL DEFAULT -1,
		rate_limit_reset TIMESTAMP
	)
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create sync_status table: %w", err)
	}
	return nil
}
