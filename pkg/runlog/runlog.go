// Package runlog persists the audit trail of sweep executions and
// serves run queries.
package runlog

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// Detail is a run together with every attempt it recorded.
type Detail struct {
	Run      models.SchedulerRun  `json:"run"`
	Attempts []models.UnitAttempt `json:"attempts"`
}

// Logger writes and reads the run audit trail. Writes commit before the
// caller proceeds; a failed write is the caller's problem to handle.
type Logger struct {
	store db.Service
}

// New returns a run logger over the given store.
func New(store db.Service) *Logger {
	return &Logger{store: store}
}

// Start records the beginning of a sweep.
func (l *Logger) Start(run *models.SchedulerRun) error {
	run.Status = models.RunRunning

	if err := l.store.CreateRun(run); err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}

	log.WithFields(log.Fields{
		"run":   run.RunID,
		"units": run.TotalUnits,
	}).Info("Sweep started")

	return nil
}

// RecordAttempt persists one attempt before the orchestrator moves on.
func (l *Logger) RecordAttempt(attempt *models.UnitAttempt) error {
	if err := l.store.RecordAttempt(attempt); err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}

	return nil
}

// Finish writes the run's final counts and status.
func (l *Logger) Finish(run *models.SchedulerRun) error {
	if err := l.store.FinishRun(run); err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}

	log.WithFields(log.Fields{
		"run":        run.RunID,
		"status":     run.Status,
		"successful": run.SuccessfulUnits,
		"failed":     run.FailedUnits,
		"retries":    run.RetryAttempts,
	}).Info("Sweep finished")

	return nil
}

// RecentRuns returns the latest runs, newest first.
func (l *Logger) RecentRuns(limit int) ([]models.SchedulerRun, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	return l.store.ListRecentRuns(limit)
}

// RunDetail returns one run with its attempts.
func (l *Logger) RunDetail(runID string) (*Detail, error) {
	run, err := l.store.GetRun(runID)
	if err != nil {
		return nil, err
	}

	attempts, err := l.store.GetAttempts(runID)
	if err != nil {
		return nil, err
	}

	return &Detail{Run: *run, Attempts: attempts}, nil
}

// ActiveRun returns the in-flight run, or nil when idle.
func (l *Logger) ActiveRun() (*models.SchedulerRun, error) {
	return l.store.GetActiveRun()
}

// RunStatistics aggregates outcomes over the daysBack days trailing
// now.
func (l *Logger) RunStatistics(now time.Time, daysBack int) (*models.RunStatistics, error) {
	if daysBack <= 0 {
		daysBack = 7
	}

	since := now.Add(-time.Duration(daysBack) * 24 * time.Hour)

	runs, err := l.store.ListRunsSince(since)
	if err != nil {
		return nil, err
	}

	stats := &models.RunStatistics{
		DaysBack:        daysBack,
		TotalRuns:       len(runs),
		UnitReliability: make(map[string]float64),
	}

	var (
		durationSum time.Duration
		finished    int
	)

	for i := range runs {
		run := &runs[i]
		stats.TotalRetries += run.RetryAttempts

		if run.Status == models.RunCompleted {
			stats.CompletedRuns++
		}

		if run.EndTime != nil {
			durationSum += run.EndTime.Sub(run.StartTime)
			finished++
		}
	}

	if stats.TotalRuns > 0 {
		stats.SuccessRate = float64(stats.CompletedRuns) / float64(stats.TotalRuns) * 100
	}

	if finished > 0 {
		stats.AvgDuration = durationSum / time.Duration(finished)
	}

	attempts, err := l.store.ListAttemptsSince(since)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	successes := make(map[string]int)

	for i := range attempts {
		totals[attempts[i].UnitID]++

		if attempts[i].Success {
			successes[attempts[i].UnitID]++
		}
	}

	for unitID, total := range totals {
		stats.UnitReliability[unitID] = float64(successes[unitID]) / float64(total) * 100
	}

	return stats, nil
}

// CleanupOldRuns drops audit data past the retention period.
func (l *Logger) CleanupOldRuns(retention time.Duration) error {
	return l.store.CleanOldData(retention)
}
