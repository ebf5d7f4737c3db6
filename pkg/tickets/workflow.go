// Package tickets drives the human-approved ticket workflow for
// escalated alerts.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
)

var (
	ErrApprovalNotPending = errors.New("approval request is not pending")
	ErrApprovalExpired    = errors.New("approval request has expired")
)

const historyDepth = 5

// Workflow owns the approval state machine. An escalated alert moves
// through pending approval to a created ticket; denial and timeout make
// the alert eligible for a fresh request on a later sweep.
type Workflow struct {
	store     db.Service
	ticketing TicketingClient
	notifier  Notifier
	timeout   time.Duration
}

// NewWorkflow wires the workflow to its store, ticketing system, and
// approval channel.
func NewWorkflow(store db.Service, ticketing TicketingClient, notifier Notifier, timeout time.Duration) *Workflow {
	return &Workflow{
		store:     store,
		ticketing: ticketing,
		notifier:  notifier,
		timeout:   timeout,
	}
}

// EnsureTicket advances the workflow for one escalated alert. Called
// once per sweep per escalated alert:
//   - a linked ticket gets a progress update, never a duplicate
//   - an undecided request leaves the state untouched
//   - otherwise an existing open ticket is adopted, or a new approval
//     request is submitted
func (w *Workflow) EnsureTicket(ctx context.Context, alert *models.Alert, status *models.ComponentStatus, now time.Time) error {
	if alert.TicketRef != "" {
		return w.updateTicket(ctx, alert, status, now)
	}

	pending, err := w.pendingRequestFor(alert.ID)
	if err != nil {
		return err
	}

	if pending != nil {
		return nil
	}

	// Check the external system before asking a human: another process
	// or a previous run may already track this outage.
	existing, err := w.ticketing.FindOpen(ctx, alert.UnitID, alert.Component)
	if err != nil {
		return fmt.Errorf("checking for open ticket: %w", err)
	}

	if existing != "" {
		return w.adoptTicket(alert, existing, now)
	}

	return w.requestApproval(ctx, alert, status, now)
}

func (w *Workflow) pendingRequestFor(alertID int64) (*models.ApprovalRequest, error) {
	pending, err := w.store.ListPendingApprovals()
	if err != nil {
		return nil, err
	}

	for i := range pending {
		if pending[i].AlertID == alertID {
			return &pending[i], nil
		}
	}

	return nil, nil
}

func (w *Workflow) adoptTicket(alert *models.Alert, ref string, now time.Time) error {
	if err := w.store.SetAlertTicket(alert.ID, ref); err != nil {
		return err
	}

	alert.TicketRef = ref

	if err := w.store.SaveTicket(&models.Ticket{
		Ref:       ref,
		AlertID:   alert.ID,
		UnitID:    alert.UnitID,
		Component: alert.Component,
		Status:    models.TicketCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"unit":      alert.UnitID,
		"component": alert.Component,
		"ref":       ref,
	}).Info("Adopted existing open ticket")

	return nil
}

func (w *Workflow) requestApproval(ctx context.Context, alert *models.Alert, status *models.ComponentStatus, now time.Time) error {
	severity := models.SeverityForDowntime(status.DowntimeAging)

	history, err := w.historyContext(alert.UnitID, alert.Component)
	if err != nil {
		return err
	}

	req := &models.ApprovalRequest{
		ID:        uuid.New().String(),
		AlertID:   alert.ID,
		UnitID:    alert.UnitID,
		Component: alert.Component,
		Severity:  severity,
		Summary: describeTicket(&Summary{
			UnitID:        alert.UnitID,
			Component:     alert.Component,
			Severity:      severity,
			Uptime:        status.UptimePercentage,
			DowntimeAging: status.DowntimeAging.String(),
			History:       history,
		}),
		State:       models.ApprovalPending,
		RequestedAt: now,
		ExpiresAt:   now.Add(w.timeout),
	}

	if err := w.store.SaveApproval(req); err != nil {
		return err
	}

	if err := w.store.AppendApprovalAudit(req.ID, "requested", "", "escalated alert", now); err != nil {
		return err
	}

	message := fmt.Sprintf(
		"Ticket approval needed for %s %s (severity %s).\n%s\nApprove or deny request %s before %s.",
		req.UnitID, req.Component, req.Severity, req.Summary, req.ID,
		req.ExpiresAt.UTC().Format(time.RFC3339),
	)

	if err := w.notifier.Notify(ctx, message); err != nil {
		// The pending record still stands; the API lists it either way.
		log.Errorf("Failed to notify approvers for request %s: %v", req.ID, err)
	}

	log.WithFields(log.Fields{
		"request":   req.ID,
		"unit":      req.UnitID,
		"component": req.Component,
		"severity":  req.Severity,
	}).Info("Approval requested")

	return nil
}

// Decide applies a human decision to a pending request. Approval
// creates the ticket and links it to the alert.
func (w *Workflow) Decide(ctx context.Context, decision *models.Decision, now time.Time) (*models.ApprovalRequest, error) {
	req, err := w.store.GetApproval(decision.RequestID)
	if err != nil {
		return nil, err
	}

	if req.State != models.ApprovalPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrApprovalNotPending, req.ID, req.State)
	}

	if now.After(req.ExpiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrApprovalExpired, req.ID)
	}

	req.DecidedAt = &now
	req.Approver = decision.Approver
	req.Comments = decision.Comments

	if !decision.Approved {
		req.State = models.ApprovalDenied

		if err := w.store.UpdateApproval(req); err != nil {
			return nil, err
		}

		if err := w.store.AppendApprovalAudit(req.ID, "denied", decision.Approver, decision.Comments, now); err != nil {
			return nil, err
		}

		log.WithFields(log.Fields{"request": req.ID, "approver": decision.Approver}).Info("Approval denied")

		return req, nil
	}

	ref, err := w.createTicket(ctx, req, now)
	if err != nil {
		return nil, err
	}

	req.State = models.ApprovalApproved

	if err := w.store.UpdateApproval(req); err != nil {
		return nil, err
	}

	if err := w.store.AppendApprovalAudit(req.ID, "approved", decision.Approver, ref, now); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"request":  req.ID,
		"approver": decision.Approver,
		"ref":      ref,
	}).Info("Approval granted, ticket created")

	return req, nil
}

func (w *Workflow) createTicket(ctx context.Context, req *models.ApprovalRequest, now time.Time) (string, error) {
	ref, err := w.ticketing.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("creating ticket: %w", err)
	}

	if err := w.store.SetAlertTicket(req.AlertID, ref); err != nil {
		return "", err
	}

	if err := w.store.SaveTicket(&models.Ticket{
		Ref:       ref,
		AlertID:   req.AlertID,
		UnitID:    req.UnitID,
		Component: req.Component,
		Status:    models.TicketCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return "", err
	}

	return ref, nil
}

// ExpireTimeouts times out pending requests past their deadline. The
// affected alerts become eligible for a fresh request next sweep.
func (w *Workflow) ExpireTimeouts(now time.Time) (int, error) {
	pending, err := w.store.ListPendingApprovals()
	if err != nil {
		return 0, err
	}

	expired := 0

	for i := range pending {
		req := &pending[i]
		if !now.After(req.ExpiresAt) {
			continue
		}

		req.State = models.ApprovalTimedOut
		req.DecidedAt = &now

		if err := w.store.UpdateApproval(req); err != nil {
			return expired, err
		}

		if err := w.store.AppendApprovalAudit(req.ID, "timed_out", "", "", now); err != nil {
			return expired, err
		}

		log.WithFields(log.Fields{"request": req.ID, "unit": req.UnitID}).Warn("Approval request timed out")

		expired++
	}

	return expired, nil
}

func (w *Workflow) updateTicket(ctx context.Context, alert *models.Alert, status *models.ComponentStatus, now time.Time) error {
	comment := fmt.Sprintf(
		"Still below SLA: uptime %.2f%%, state %s, down for %s.",
		status.UptimePercentage, status.State, status.DowntimeAging,
	)

	if err := w.ticketing.Update(ctx, alert.TicketRef, comment); err != nil {
		return err
	}

	if err := w.store.UpdateTicketStatus(alert.TicketRef, models.TicketUpdated, now); err != nil &&
		!errors.Is(err, db.ErrNotFound) {
		return err
	}

	return nil
}

func (w *Workflow) historyContext(unitID string, component models.Component) (string, error) {
	points, err := w.store.GetComponentHistory(unitID, component, historyDepth)
	if err != nil {
		return "", err
	}

	if len(points) == 0 {
		return "no recorded history", nil
	}

	lines := make([]string, 0, len(points))
	for _, p := range points {
		lines = append(lines, fmt.Sprintf(
			"%s: %s, uptime %.1f%%, down %s",
			p.RecordedAt.UTC().Format("2006-01-02 15:04"),
			p.State, p.Uptime, p.DowntimeAging,
		))
	}

	return strings.Join(lines, "\n"), nil
}
