// Package tickets pkg/tickets/interfaces.go

//go:generate mockgen -destination=mock_tickets.go -package=tickets github.com/oceanops/fleetwatch/pkg/tickets TicketingClient,Notifier

package tickets

import (
	"context"

	"github.com/oceanops/fleetwatch/pkg/models"
)

// TicketingClient talks to the external ticketing system.
type TicketingClient interface {
	// FindOpen returns the ref of an existing open ticket for the pair,
	// or "" when none exists.
	FindOpen(ctx context.Context, unitID string, component models.Component) (string, error)

	// Create opens a new ticket for an approved request and returns
	// its ref.
	Create(ctx context.Context, req *models.ApprovalRequest) (string, error)

	// Update appends a progress comment to an existing ticket.
	Update(ctx context.Context, ref, comment string) error
}

// Notifier delivers approval requests to the humans who decide them.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Summary is the ticket content assembled from an escalated alert.
type Summary struct {
	UnitID        string
	Component     models.Component
	Severity      models.Severity
	Uptime        float64
	DowntimeAging string
	History       string
}
