// Package db pkg/db/db.go provides SQLite database functionality for fleetwatch.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
)

const (
	// SQL statements for database initialization.
	createTablesSQL = `
	-- Sweep run audit log
	CREATE TABLE IF NOT EXISTS scheduler_runs (
		run_id TEXT PRIMARY KEY,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP,
		total_units INTEGER NOT NULL DEFAULT 0,
		successful_units INTEGER NOT NULL DEFAULT 0,
		failed_units INTEGER NOT NULL DEFAULT 0,
		retry_attempts INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT
	);

	-- Per-unit attempt results within a run
	CREATE TABLE IF NOT EXISTS unit_attempts (
		run_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		success BOOLEAN NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		timestamp TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, unit_id, attempt_number),
		FOREIGN KEY (run_id) REFERENCES scheduler_runs(run_id) ON DELETE CASCADE
	);

	-- SLA alerts; at most one open alert per (unit, component)
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		unit_id TEXT NOT NULL,
		component TEXT NOT NULL,
		state TEXT NOT NULL,
		raised_at TIMESTAMP NOT NULL,
		last_confirmed_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP,
		escalated BOOLEAN NOT NULL DEFAULT 0,
		ticket_ref TEXT,
		uptime REAL NOT NULL DEFAULT 0,
		downtime_aging_s INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_unique
		ON alerts(unit_id, component) WHERE state = 'open';

	-- Local records of externally created tickets
	CREATE TABLE IF NOT EXISTS tickets (
		ticket_ref TEXT PRIMARY KEY,
		alert_id INTEGER NOT NULL,
		unit_id TEXT NOT NULL,
		component TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY (alert_id) REFERENCES alerts(id) ON DELETE CASCADE
	);

	-- Component status history recorded each sweep
	CREATE TABLE IF NOT EXISTS component_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		unit_id TEXT NOT NULL,
		component TEXT NOT NULL,
		uptime REAL NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		downtime_aging_s INTEGER NOT NULL DEFAULT 0,
		recorded_at TIMESTAMP NOT NULL
	);

	-- Pending and decided ticket-creation approvals
	CREATE TABLE IF NOT EXISTS approvals (
		id TEXT PRIMARY KEY,
		alert_id INTEGER NOT NULL,
		unit_id TEXT NOT NULL,
		component TEXT NOT NULL,
		severity TEXT NOT NULL,
		summary TEXT NOT NULL,
		state TEXT NOT NULL,
		requested_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		decided_at TIMESTAMP,
		approver TEXT,
		comments TEXT
	);

	-- Audit trail of approval transitions
	CREATE TABLE IF NOT EXISTS approval_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		event TEXT NOT NULL,
		actor TEXT,
		detail TEXT,
		timestamp TIMESTAMP NOT NULL
	);

	-- Indexes for better query performance
	CREATE INDEX IF NOT EXISTS idx_scheduler_runs_start
		ON scheduler_runs(start_time);
	CREATE INDEX IF NOT EXISTS idx_unit_attempts_run
		ON unit_attempts(run_id);
	CREATE INDEX IF NOT EXISTS idx_unit_attempts_time
		ON unit_attempts(timestamp);
	CREATE INDEX IF NOT EXISTS idx_alerts_unit_component
		ON alerts(unit_id, component);
	CREATE INDEX IF NOT EXISTS idx_component_history_unit_time
		ON component_history(unit_id, component, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_approvals_state
		ON approvals(state);
	CREATE INDEX IF NOT EXISTS idx_approval_audit_request
		ON approval_audit(request_id, timestamp);

	PRAGMA foreign_keys=ON;
	`
)

// DB represents the database connection and operations.
type DB struct {
	*sql.DB
}

// New creates a new database connection and initializes the schema.
func New(dbPath string) (Service, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToEnableWAL, err)
	}

	db := &DB{sqlDB}
	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return db, nil
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema() error {
	_, err := db.DB.Exec(createTablesSQL)

	return err
}

// Begin starts a transaction wrapped in the Transaction interface.
func (db *DB) Begin() (Transaction, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	return ToTransaction(tx), nil
}

// Exec runs a statement through the Result interface.
func (db *DB) Exec(query string, args ...interface{}) (Result, error) {
	result, err := db.DB.Exec(query, args...)
	if err != nil {
		return nil, err
	}

	return ToResult(result), nil
}

// Query runs a query through the Rows interface.
func (db *DB) Query(query string, args ...interface{}) (Rows, error) {
	rows, err := db.DB.Query(query, args...) //nolint:rowserrcheck // caller closes via CloseRows
	if err != nil {
		return nil, err
	}

	return &SQLRows{rows}, nil
}

// QueryRow runs a single-row query through the Row interface.
func (db *DB) QueryRow(query string, args ...interface{}) Row {
	return ToRow(db.DB.QueryRow(query, args...))
}

func rollbackOnError(tx Transaction, err error) {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorf("Error rolling back transaction: %v", rbErr)
		}
	}
}
