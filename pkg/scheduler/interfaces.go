// Package scheduler pkg/scheduler/interfaces.go

//go:generate mockgen -destination=mock_scheduler.go -package=scheduler github.com/oceanops/fleetwatch/pkg/scheduler AlertEvaluator,TicketWorkflow,EventSink

package scheduler

import (
	"context"
	"time"

	"github.com/oceanops/fleetwatch/pkg/alerting"
	"github.com/oceanops/fleetwatch/pkg/models"
)

// AlertEvaluator applies dedup/escalation rules for one unit's sweep
// results.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, unit *models.Unit, statuses []models.ComponentStatus,
		verdicts []models.SLAVerdict, now time.Time) (*alerting.Outcome, error)
}

// TicketWorkflow advances the approval/ticket state machine.
type TicketWorkflow interface {
	EnsureTicket(ctx context.Context, alert *models.Alert, status *models.ComponentStatus, now time.Time) error
	ExpireTimeouts(now time.Time) (int, error)
}

// EventSink receives engine events for live consumers.
type EventSink interface {
	Publish(event string, payload interface{})
}
