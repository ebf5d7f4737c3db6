package db

import (
	"fmt"
	"time"
)

// CleanOldData removes runs, attempts, history, and decided approvals
// older than the retention period. Open alerts are never cleaned.
func (db *DB) CleanOldData(retentionPeriod time.Duration) error {
	cutoff := time.Now().Add(-retentionPeriod)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	defer func() {
		if err != nil {
			rollbackOnError(tx, err)
			return
		}

		err = tx.Commit()
	}()

	if _, err = tx.Exec(
		"DELETE FROM unit_attempts WHERE run_id IN (SELECT run_id FROM scheduler_runs WHERE start_time < ?)",
		cutoff,
	); err != nil {
		return fmt.Errorf("%w unit attempts: %w", ErrFailedToClean, err)
	}

	if _, err = tx.Exec(
		"DELETE FROM scheduler_runs WHERE start_time < ?",
		cutoff,
	); err != nil {
		return fmt.Errorf("%w scheduler runs: %w", ErrFailedToClean, err)
	}

	if _, err = tx.Exec(
		"DELETE FROM component_history WHERE recorded_at < ?",
		cutoff,
	); err != nil {
		return fmt.Errorf("%w component history: %w", ErrFailedToClean, err)
	}

	if _, err = tx.Exec(
		"DELETE FROM approvals WHERE state != 'pending' AND requested_at < ?",
		cutoff,
	); err != nil {
		return fmt.Errorf("%w approvals: %w", ErrFailedToClean, err)
	}

	if _, err = tx.Exec(
		"DELETE FROM alerts WHERE state = 'resolved' AND resolved_at < ?",
		cutoff,
	); err != nil {
		return fmt.Errorf("%w resolved alerts: %w", ErrFailedToClean, err)
	}

	return nil
}
