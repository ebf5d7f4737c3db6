// Package db pkg/db/interfaces.go
package db

import (
	"time"

	"github.com/oceanops/fleetwatch/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/oceanops/fleetwatch/pkg/db Row,Result,Rows,Transaction,Service

// ComponentHistoryPoint is one recorded component status sample, used to
// represent data read back out of the database.
type ComponentHistoryPoint struct {
	UnitID        string                  `json:"unit_id"`
	Component     models.Component        `json:"component"`
	Uptime        float64                 `json:"uptime_percentage"`
	State         models.OperationalState `json:"operational_state"`
	DowntimeAging time.Duration           `json:"downtime_aging"`
	RecordedAt    time.Time               `json:"recorded_at"`
}

// Row represents a database row.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result represents the result of a database operation.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Rows represents multiple database rows.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Transaction represents operations that can be performed within a database transaction.
type Transaction interface {
	Exec(query string, args ...interface{}) (Result, error)
	Query(query string, args ...interface{}) (Rows, error)
	QueryRow(query string, args ...interface{}) Row
	Commit() error
	Rollback() error
}

// Service represents all database operations.
type Service interface {
	// Core database operations.

	Begin() (Transaction, error)
	Close() error
	Exec(query string, args ...interface{}) (Result, error)
	Query(query string, args ...interface{}) (Rows, error)
	QueryRow(query string, args ...interface{}) Row

	// Sweep run operations.

	CreateRun(run *models.SchedulerRun) error
	FinishRun(run *models.SchedulerRun) error
	GetRun(runID string) (*models.SchedulerRun, error)
	GetActiveRun() (*models.SchedulerRun, error)
	ListRecentRuns(limit int) ([]models.SchedulerRun, error)
	ListRunsSince(since time.Time) ([]models.SchedulerRun, error)
	RecordAttempt(attempt *models.UnitAttempt) error
	GetAttempts(runID string) ([]models.UnitAttempt, error)
	ListAttemptsSince(since time.Time) ([]models.UnitAttempt, error)

	// Alert operations.

	GetOpenAlert(unitID string, component models.Component) (*models.Alert, error)
	CreateAlert(alert *models.Alert) (int64, error)
	ConfirmAlert(id int64, at time.Time, uptime float64, aging time.Duration) error
	EscalateAlert(id int64) error
	ResolveAlert(id int64, at time.Time) error
	SetAlertTicket(id int64, ticketRef string) error
	ListOpenAlerts() ([]models.Alert, error)

	// Ticket operations.

	SaveTicket(ticket *models.Ticket) error
	UpdateTicketStatus(ref string, status models.TicketStatus, at time.Time) error

	// Component history operations.

	RecordComponentStatus(status *models.ComponentStatus, at time.Time) error
	GetComponentHistory(unitID string, component models.Component, limit int) ([]ComponentHistoryPoint, error)
	GetFleetSnapshot() ([]ComponentHistoryPoint, error)

	// Approval operations.

	SaveApproval(req *models.ApprovalRequest) error
	UpdateApproval(req *models.ApprovalRequest) error
	GetApproval(id string) (*models.ApprovalRequest, error)
	ListPendingApprovals() ([]models.ApprovalRequest, error)
	AppendApprovalAudit(requestID, event, actor, detail string, at time.Time) error

	// Maintenance operations.

	CleanOldData(retentionPeriod time.Duration) error
}
