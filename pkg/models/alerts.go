package models

import "time"

// AlertState tracks the lifecycle of an SLA alert.
type AlertState string

const (
	AlertOpen     AlertState = "open"
	AlertResolved AlertState = "resolved"
)

// Alert is a deduplicated SLA violation record. At most one open alert
// exists per (unit, component) pair.
type Alert struct {
	ID              int64         `json:"id"`
	UnitID          string        `json:"unit_id"`
	Component       Component     `json:"component"`
	State           AlertState    `json:"state"`
	RaisedAt        time.Time     `json:"raised_at"`
	LastConfirmedAt time.Time     `json:"last_confirmed_at"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	Escalated       bool          `json:"escalated"`
	TicketRef       string        `json:"ticket_ref,omitempty"`
	Uptime          float64       `json:"uptime_percentage"`
	DowntimeAging   time.Duration `json:"downtime_aging"`
}

// TicketStatus mirrors the external ticketing system's lifecycle as far
// as fleetwatch tracks it.
type TicketStatus string

const (
	TicketCreated  TicketStatus = "created"
	TicketUpdated  TicketStatus = "updated"
	TicketResolved TicketStatus = "resolved"
)

// Ticket is fleetwatch's local record of an externally created ticket.
type Ticket struct {
	Ref       string       `json:"ticket_ref"`
	AlertID   int64        `json:"alert_id"`
	UnitID    string       `json:"unit_id"`
	Component Component    `json:"component"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ApprovalState tracks a pending ticket-creation request.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalDenied   ApprovalState = "denied"
	ApprovalTimedOut ApprovalState = "timed_out"
)

// ApprovalRequest asks a human to approve ticket creation for an
// escalated alert.
type ApprovalRequest struct {
	ID          string        `json:"id"`
	AlertID     int64         `json:"alert_id"`
	UnitID      string        `json:"unit_id"`
	Component   Component     `json:"component"`
	Severity    Severity      `json:"severity"`
	Summary     string        `json:"summary"`
	State       ApprovalState `json:"state"`
	RequestedAt time.Time     `json:"requested_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	DecidedAt   *time.Time    `json:"decided_at,omitempty"`
	Approver    string        `json:"approver,omitempty"`
	Comments    string        `json:"comments,omitempty"`
}

// Decision is a human response to an approval request.
type Decision struct {
	RequestID string `json:"request_id"`
	Approved  bool   `json:"approved"`
	Approver  string `json:"approver"`
	Comments  string `json:"comments,omitempty"`
}
