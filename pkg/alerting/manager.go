// Package alerting deduplicates SLA violations into alerts and drives
// escalation and recovery notifications.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
)

// Outcome reports what a sweep's evaluation changed for one unit.
type Outcome struct {
	Raised    []models.Alert
	Confirmed []models.Alert
	Escalated []models.Alert
	Recovered []models.Alert
}

// Manager applies the dedup and escalation rules against stored alerts.
// It is driven from per-unit pipelines that never share a
// (unit, component) key, so no additional locking is needed here.
//
// The analyzer's downtime aging is bounded by its query window, so the
// manager accrues episode aging across sweeps on the open alert: each
// confirmation adds the wall-clock time since the previous one. The
// stored aging is the violation episode's age, not one window's view.
type Manager struct {
	store         db.Service
	alerters      []AlertService
	escalationAge time.Duration
}

// NewManager wires the alert manager to its store and notifiers.
func NewManager(store db.Service, alerters []AlertService, escalationAge time.Duration) *Manager {
	return &Manager{
		store:         store,
		alerters:      alerters,
		escalationAge: escalationAge,
	}
}

// Evaluate is idempotent per sweep: re-running with the same inputs
// refreshes last-confirmed timestamps but raises and escalates at most
// once per violation episode.
func (m *Manager) Evaluate(
	ctx context.Context,
	unit *models.Unit,
	statuses []models.ComponentStatus,
	verdicts []models.SLAVerdict,
	now time.Time,
) (*Outcome, error) {
	if len(statuses) != len(verdicts) {
		return nil, fmt.Errorf("status/verdict count mismatch for unit %s", unit.ID)
	}

	outcome := &Outcome{}

	for i := range statuses {
		if err := m.evaluateComponent(ctx, &statuses[i], &verdicts[i], now, outcome); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

func (m *Manager) evaluateComponent(
	ctx context.Context,
	status *models.ComponentStatus,
	verdict *models.SLAVerdict,
	now time.Time,
	outcome *Outcome,
) error {
	open, err := m.store.GetOpenAlert(status.UnitID, status.Component)
	if err != nil {
		return err
	}

	if verdict.IsCompliant {
		if open == nil {
			return nil
		}

		return m.recover(ctx, open, now, outcome)
	}

	if open == nil {
		return m.raise(ctx, status, now, outcome)
	}

	aging := episodeAging(open, status, now)

	if err := m.store.ConfirmAlert(open.ID, now, status.UptimePercentage, aging); err != nil {
		return err
	}

	open.LastConfirmedAt = now
	open.Uptime = status.UptimePercentage
	open.DowntimeAging = aging
	outcome.Confirmed = append(outcome.Confirmed, *open)

	// Escalate exactly once per violation episode, on the crossing.
	if !open.Escalated && aging >= m.escalationAge {
		return m.escalate(ctx, open, outcome)
	}

	return nil
}

// episodeAging carries the open alert's aging forward: the previous
// sweep's value plus the time elapsed since, or the analyzer's reading
// when that is larger.
func episodeAging(open *models.Alert, status *models.ComponentStatus, now time.Time) time.Duration {
	accrued := open.DowntimeAging + now.Sub(open.LastConfirmedAt)
	if status.DowntimeAging > accrued {
		return status.DowntimeAging
	}

	return accrued
}

func (m *Manager) escalate(ctx context.Context, alert *models.Alert, outcome *Outcome) error {
	if err := m.store.EscalateAlert(alert.ID); err != nil {
		return err
	}

	alert.Escalated = true
	outcome.Escalated = append(outcome.Escalated, *alert)

	log.WithFields(log.Fields{
		"unit":      alert.UnitID,
		"component": alert.Component,
		"aging":     alert.DowntimeAging,
	}).Warn("SLA alert escalated")

	m.notify(ctx, &WebhookAlert{
		Level:   Error,
		Title:   fmt.Sprintf("SLA escalation: %s %s", alert.UnitID, alert.Component),
		Message: fmt.Sprintf("Component down for %s, past the escalation age", alert.DowntimeAging),
		UnitID:  alert.UnitID,
		Details: map[string]any{
			"component":      alert.Component,
			"uptime":         alert.Uptime,
			"downtime_aging": alert.DowntimeAging.String(),
			"severity":       models.SeverityForDowntime(alert.DowntimeAging),
		},
	})

	return nil
}

func (m *Manager) raise(ctx context.Context, status *models.ComponentStatus, now time.Time, outcome *Outcome) error {
	alert := models.Alert{
		UnitID:          status.UnitID,
		Component:       status.Component,
		State:           models.AlertOpen,
		RaisedAt:        now,
		LastConfirmedAt: now,
		Uptime:          status.UptimePercentage,
		DowntimeAging:   status.DowntimeAging,
	}

	id, err := m.store.CreateAlert(&alert)
	if err != nil {
		return err
	}

	alert.ID = id
	outcome.Raised = append(outcome.Raised, alert)

	log.WithFields(log.Fields{
		"unit":      alert.UnitID,
		"component": alert.Component,
		"uptime":    alert.Uptime,
	}).Warn("SLA alert raised")

	m.notify(ctx, &WebhookAlert{
		Level:   Warning,
		Title:   fmt.Sprintf("SLA violation: %s %s", alert.UnitID, alert.Component),
		Message: fmt.Sprintf("Uptime %.2f%% below threshold", alert.Uptime),
		UnitID:  alert.UnitID,
		Details: map[string]any{
			"component": alert.Component,
			"state":     status.State,
			"uptime":    alert.Uptime,
		},
	})

	// A first observation can already be past the escalation age, e.g.
	// a short configured age or a NO_DATA component aged a full window.
	if alert.DowntimeAging >= m.escalationAge {
		return m.escalate(ctx, &alert, outcome)
	}

	return nil
}

func (m *Manager) recover(ctx context.Context, open *models.Alert, now time.Time, outcome *Outcome) error {
	if err := m.store.ResolveAlert(open.ID, now); err != nil {
		return err
	}

	if open.TicketRef != "" {
		if err := m.store.UpdateTicketStatus(open.TicketRef, models.TicketResolved, now); err != nil &&
			!errors.Is(err, db.ErrNotFound) {
			return err
		}
	}

	open.State = models.AlertResolved
	open.ResolvedAt = &now
	outcome.Recovered = append(outcome.Recovered, *open)

	log.WithFields(log.Fields{
		"unit":      open.UnitID,
		"component": open.Component,
	}).Info("SLA alert recovered")

	m.notify(ctx, &WebhookAlert{
		Level:   Info,
		Title:   fmt.Sprintf("SLA recovery: %s %s", open.UnitID, open.Component),
		Message: "Component back within the uptime threshold",
		UnitID:  open.UnitID,
		Details: map[string]any{
			"component":  open.Component,
			"ticket_ref": open.TicketRef,
		},
	})

	return nil
}

// notify fans the alert out to every configured hook. Delivery failures
// never fail the sweep.
func (m *Manager) notify(ctx context.Context, alert *WebhookAlert) {
	for _, alerter := range m.alerters {
		if !alerter.IsEnabled() {
			continue
		}

		if err := alerter.Alert(ctx, alert); err != nil {
			if errors.Is(err, errWebhookCooldown) {
				continue
			}

			log.Errorf("Failed to send alert notification: %v", err)
		}
	}
}
