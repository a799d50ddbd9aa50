package storage

import (
	"database/sql"
	"fmt"

	"github.com/daverage/bbtrack/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

const (
	SchemaVersion = 3
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens the database configured in cfg.
func NewDB(cfg *config.Config) (*DB, error) {
	return Open(cfg.DBPath)
}

// Open opens the SQLite database at path and migrates it to SchemaVersion.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=10000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	database := &DB{conn: db, path: path}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return database, nil
}

// migrate applies database migrations
func (db *DB) migrate() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", version, SchemaVersion)
	}

	// Apply migrations incrementally
	for version < SchemaVersion {
		version++
		switch version {
		case 1:
			if err := db.applySchemaV1(tx); err != nil {
				return fmt.Errorf("failed to apply schema v%d: %w", version, err)
			}
		case 2:
			if err := db.applySchemaV2(tx); err != nil {
				return fmt.Errorf("failed to apply schema v%d: %w", version, err)
			}
		case 3:
			if err := db.applySchemaV3(tx); err != nil {
				return fmt.Errorf("failed to apply schema v%d: %w", version, err)
			}
		default:
			return fmt.Errorf("unknown schema version: %d", version)
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}

// applySchemaV1 creates the readings table. One row per calendar date.
func (db *DB) applySchemaV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL UNIQUE,
			temperature REAL NOT NULL CHECK(temperature BETWEEN 35.0 AND 42.0),
			fever BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// applySchemaV2 adds the key-value table holding state that outlives an
// engine run.
func (db *DB) applySchemaV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS engine_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// applySchemaV3 adds the inference run log.
func (db *DB) applySchemaV3(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS inference_runs (
			id TEXT PRIMARY KEY,
			ran_at TEXT NOT NULL,
			readings_used INTEGER NOT NULL,
			fever_excluded INTEGER NOT NULL DEFAULT 0,
			ovulation_date TEXT NOT NULL DEFAULT '',
			confidence TEXT NOT NULL CHECK(confidence IN ('low', 'medium', 'high')),
			pattern TEXT NOT NULL DEFAULT '',
			score REAL NOT NULL DEFAULT 0,
			message TEXT NOT NULL,
			dip_transition TEXT NOT NULL DEFAULT 'none',
			dip_active BOOLEAN NOT NULL DEFAULT FALSE,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_inference_runs_ran_at ON inference_runs(ran_at)`)
	return err
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetConnection returns the underlying database connection
func (db *DB) GetConnection() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Version returns the schema version recorded in the database.
func (db *DB) Version() (int, error) {
	var version int
	err := db.conn.QueryRow("PRAGMA user_version").Scan(&version)
	return version, err
}
