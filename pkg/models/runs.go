package models

import "time"

// RunStatus is the terminal (or in-flight) state of a sweep run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SchedulerRun is the audit record of one fleet sweep.
type SchedulerRun struct {
	RunID           string     `json:"run_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	TotalUnits      int        `json:"total_units"`
	SuccessfulUnits int        `json:"successful_units"`
	FailedUnits     int        `json:"failed_units"`
	RetryAttempts   int        `json:"retry_attempts"`
	Status          RunStatus  `json:"status"`
	Error           string     `json:"error,omitempty"`
}

// UnitAttempt is one processing attempt for one unit within a run.
type UnitAttempt struct {
	RunID         string        `json:"run_id"`
	UnitID        string        `json:"unit_id"`
	AttemptNumber int           `json:"attempt_number"`
	Success       bool          `json:"success"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// RunStatistics aggregates sweep outcomes over a trailing window.
type RunStatistics struct {
	DaysBack        int                `json:"days_back"`
	TotalRuns       int                `json:"total_runs"`
	CompletedRuns   int                `json:"completed_runs"`
	SuccessRate     float64            `json:"success_rate"`
	AvgDuration     time.Duration      `json:"avg_duration"`
	TotalRetries    int                `json:"total_retries"`
	UnitReliability map[string]float64 `json:"unit_reliability"`
}
