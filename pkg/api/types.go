package api

import (
	"time"

	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
)

// DecisionRequest is the body of POST /api/approvals/{id}/decision.
type DecisionRequest struct {
	Approved bool   `json:"approved"`
	Approver string `json:"approver"`
	Comments string `json:"comments,omitempty"`
}

// SweepResponse acknowledges an on-demand sweep.
type SweepResponse struct {
	RunID string `json:"run_id"`
}

// FleetSummary aggregates the latest status of every monitored
// component across the fleet.
type FleetSummary struct {
	TotalComponents int                             `json:"total_components"`
	ByState         map[models.OperationalState]int `json:"by_state"`
	OpenAlerts      int                             `json:"open_alerts"`
	Escalated       int                             `json:"escalated"`
	LastUpdate      time.Time                       `json:"last_update"`
	Components      []db.ComponentHistoryPoint      `json:"components"`
}

// UnitDetail is the per-unit view: current status per component plus
// recent history and any open alerts.
type UnitDetail struct {
	UnitID     string                                          `json:"unit_id"`
	Components map[models.Component][]db.ComponentHistoryPoint `json:"components"`
	OpenAlerts []models.Alert                                  `json:"open_alerts"`
}
