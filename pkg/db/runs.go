package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oceanops/fleetwatch/pkg/models"
)

// CreateRun inserts a new sweep run in the running state.
func (db *DB) CreateRun(run *models.SchedulerRun) error {
	const insertSQL = `
		INSERT INTO scheduler_runs
			(run_id, start_time, total_units, successful_units, failed_units, retry_attempts, status)
		VALUES (?, ?, ?, 0, 0, 0, ?)
	`

	_, err := db.DB.Exec(insertSQL, run.RunID, run.StartTime, run.TotalUnits, run.Status)
	if err != nil {
		return fmt.Errorf("%w run: %w", ErrFailedToInsert, err)
	}

	return nil
}

// FinishRun writes the final counts and status for a run.
func (db *DB) FinishRun(run *models.SchedulerRun) error {
	const updateSQL = `
		UPDATE scheduler_runs
		SET end_time = ?,
			successful_units = ?,
			failed_units = ?,
			retry_attempts = ?,
			status = ?,
			error = ?
		WHERE run_id = ?
	`

	result, err := db.DB.Exec(updateSQL,
		run.EndTime,
		run.SuccessfulUnits,
		run.FailedUnits,
		run.RetryAttempts,
		run.Status,
		nullString(run.Error),
		run.RunID)
	if err != nil {
		return fmt.Errorf("%w run: %w", ErrFailedToUpdate, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w run: %w", ErrFailedToUpdate, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: run %s", ErrNotFound, run.RunID)
	}

	return nil
}

const selectRunSQL = `
	SELECT run_id, start_time, end_time, total_units, successful_units,
		failed_units, retry_attempts, status, error
	FROM scheduler_runs
`

// GetRun retrieves a single run by id.
func (db *DB) GetRun(runID string) (*models.SchedulerRun, error) {
	row := db.DB.QueryRow(selectRunSQL+" WHERE run_id = ?", runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}

	if err != nil {
		return nil, fmt.Errorf("%w run: %w", ErrFailedToQuery, err)
	}

	return run, nil
}

// GetActiveRun returns the currently running sweep, or nil when idle.
func (db *DB) GetActiveRun() (*models.SchedulerRun, error) {
	row := db.DB.QueryRow(selectRunSQL+" WHERE status = ? ORDER BY start_time DESC LIMIT 1",
		models.RunRunning)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w active run: %w", ErrFailedToQuery, err)
	}

	return run, nil
}

// ListRecentRuns returns the most recent runs, newest first.
func (db *DB) ListRecentRuns(limit int) ([]models.SchedulerRun, error) {
	rows, err := db.DB.Query(selectRunSQL+" ORDER BY start_time DESC LIMIT ?", limit) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w recent runs: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	return scanRuns(rows)
}

// ListRunsSince returns runs started after the cutoff, oldest first.
func (db *DB) ListRunsSince(since time.Time) ([]models.SchedulerRun, error) {
	rows, err := db.DB.Query(selectRunSQL+" WHERE start_time >= ? ORDER BY start_time ASC", since) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w runs since: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	return scanRuns(rows)
}

// RecordAttempt persists one unit processing attempt.
func (db *DB) RecordAttempt(attempt *models.UnitAttempt) error {
	const insertSQL = `
		INSERT INTO unit_attempts
			(run_id, unit_id, attempt_number, success, duration_ms, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(insertSQL,
		attempt.RunID,
		attempt.UnitID,
		attempt.AttemptNumber,
		attempt.Success,
		attempt.Duration.Milliseconds(),
		nullString(attempt.Error),
		attempt.Timestamp)
	if err != nil {
		return fmt.Errorf("%w attempt: %w", ErrFailedToInsert, err)
	}

	return nil
}

const selectAttemptSQL = `
	SELECT run_id, unit_id, attempt_number, success, duration_ms, error, timestamp
	FROM unit_attempts
`

// GetAttempts returns every attempt recorded for a run.
func (db *DB) GetAttempts(runID string) ([]models.UnitAttempt, error) {
	rows, err := db.DB.Query(selectAttemptSQL+" WHERE run_id = ? ORDER BY unit_id, attempt_number", runID) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w attempts: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	return scanAttempts(rows)
}

// ListAttemptsSince returns attempts recorded after the cutoff.
func (db *DB) ListAttemptsSince(since time.Time) ([]models.UnitAttempt, error) {
	rows, err := db.DB.Query(selectAttemptSQL+" WHERE timestamp >= ? ORDER BY timestamp ASC", since) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w attempts since: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	return scanAttempts(rows)
}

func scanRun(row *sql.Row) (*models.SchedulerRun, error) {
	var (
		run     models.SchedulerRun
		endTime sql.NullTime
		runErr  sql.NullString
	)

	err := row.Scan(
		&run.RunID,
		&run.StartTime,
		&endTime,
		&run.TotalUnits,
		&run.SuccessfulUnits,
		&run.FailedUnits,
		&run.RetryAttempts,
		&run.Status,
		&runErr,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		run.EndTime = &endTime.Time
	}

	run.Error = runErr.String

	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]models.SchedulerRun, error) {
	var runs []models.SchedulerRun

	for rows.Next() {
		var (
			run     models.SchedulerRun
			endTime sql.NullTime
			runErr  sql.NullString
		)

		err := rows.Scan(
			&run.RunID,
			&run.StartTime,
			&endTime,
			&run.TotalUnits,
			&run.SuccessfulUnits,
			&run.FailedUnits,
			&run.RetryAttempts,
			&run.Status,
			&runErr,
		)
		if err != nil {
			return nil, fmt.Errorf("%w run row: %w", ErrFailedToScan, err)
		}

		if endTime.Valid {
			run.EndTime = &endTime.Time
		}

		run.Error = runErr.String

		runs = append(runs, run)
	}

	return runs, nil
}

func scanAttempts(rows *sql.Rows) ([]models.UnitAttempt, error) {
	var attempts []models.UnitAttempt

	for rows.Next() {
		var (
			a          models.UnitAttempt
			durationMS int64
			attemptErr sql.NullString
		)

		err := rows.Scan(
			&a.RunID,
			&a.UnitID,
			&a.AttemptNumber,
			&a.Success,
			&durationMS,
			&attemptErr,
			&a.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("%w attempt row: %w", ErrFailedToScan, err)
		}

		a.Duration = time.Duration(durationMS) * time.Millisecond
		a.Error = attemptErr.String

		attempts = append(attempts, a)
	}

	return attempts, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}
