// Package models defines the core domain types shared across fleetwatch.
package models

import "time"

// Component identifies a monitored sub-system of a unit.
type Component string

const (
	ComponentAccessPoint Component = "access_point"
	ComponentDashboard   Component = "dashboard"
	ComponentServer      Component = "server"
)

// Components lists every monitored component type in a stable order.
func Components() []Component {
	return []Component{ComponentAccessPoint, ComponentDashboard, ComponentServer}
}

// Device is a single addressable endpoint belonging to a component.
type Device struct {
	Address   string    `json:"address"`
	Component Component `json:"component"`
}

// Unit is a monitored remote entity (vessel) with a fixed device set.
// Immutable within a sweep.
type Unit struct {
	ID      string   `json:"id"`
	Devices []Device `json:"devices"`
}

// DeviceAddresses returns the addresses configured for one component.
func (u *Unit) DeviceAddresses(c Component) []string {
	var addrs []string

	for _, d := range u.Devices {
		if d.Component == c {
			addrs = append(addrs, d.Address)
		}
	}

	return addrs
}

// ComponentSample is one raw ping datapoint for a device within the
// trailing monitoring window.
type ComponentSample struct {
	UnitID    string    `json:"unit_id"`
	Component Component `json:"component"`
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

// OperationalState classifies a component's current condition.
type OperationalState string

const (
	StateUp       OperationalState = "up"
	StateDegraded OperationalState = "degraded"
	StateDown     OperationalState = "down"
	StateNoData   OperationalState = "no_data"
)

// ComponentStatus is the analyzer's derived view of one component.
type ComponentStatus struct {
	UnitID           string           `json:"unit_id"`
	Component        Component        `json:"component"`
	UptimePercentage float64          `json:"uptime_percentage"`
	State            OperationalState `json:"operational_state"`
	DowntimeAging    time.Duration    `json:"downtime_aging"`
	LastObservedAt   time.Time        `json:"last_observed_at"`
	// DataIncomplete marks uptime computed over less than the full
	// monitoring window; the denominator is the observed samples only.
	DataIncomplete bool `json:"data_incomplete"`
}

// SLAVerdict is the compliance decision for one (unit, component) pair.
type SLAVerdict struct {
	UnitID            string        `json:"unit_id"`
	Component         Component     `json:"component"`
	IsCompliant       bool          `json:"is_compliant"`
	UptimePercentage  float64       `json:"uptime_percentage"`
	ViolationDuration time.Duration `json:"violation_duration,omitempty"`
}

// Severity grades an escalation by how long the component has been down.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityForDowntime maps downtime aging to an escalation severity.
func SeverityForDowntime(aging time.Duration) Severity {
	switch {
	case aging >= 7*24*time.Hour:
		return SeverityCritical
	case aging >= 3*24*time.Hour:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
