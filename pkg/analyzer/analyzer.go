// Package analyzer derives component status and SLA verdicts from raw
// ping samples. All functions are pure; callers supply the reference
// time so results are reproducible.
package analyzer

import (
	"sort"
	"time"

	"github.com/oceanops/fleetwatch/pkg/models"
)

// windowCoverageRatio is the fraction of the monitoring window the
// observed samples must span before uptime is considered complete.
const windowCoverageRatio = 0.9

// Analyzer holds the SLA parameters.
type Analyzer struct {
	threshold float64
	window    time.Duration
}

// New returns an analyzer for the given uptime threshold (percent) and
// monitoring window.
func New(threshold float64, window time.Duration) *Analyzer {
	return &Analyzer{threshold: threshold, window: window}
}

// Threshold returns the configured uptime threshold.
func (a *Analyzer) Threshold() float64 {
	return a.threshold
}

// Window returns the configured monitoring window.
func (a *Analyzer) Window() time.Duration {
	return a.window
}

type deviceStats struct {
	total       int
	successes   int
	lastSample  time.Time
	lastSuccess time.Time
	firstSample time.Time
	latestUp    bool
}

// Analyze produces one status per component of the unit. Components
// with devices but no samples report NO_DATA; uptime is averaged per
// device over the observed samples only.
func (a *Analyzer) Analyze(unit *models.Unit, samples []models.ComponentSample, now time.Time) []models.ComponentStatus {
	byComponent := make(map[models.Component][]models.ComponentSample)
	for _, s := range samples {
		byComponent[s.Component] = append(byComponent[s.Component], s)
	}

	var statuses []models.ComponentStatus

	for _, component := range models.Components() {
		if len(unit.DeviceAddresses(component)) == 0 {
			continue
		}

		statuses = append(statuses, a.analyzeComponent(unit.ID, component, byComponent[component], now))
	}

	return statuses
}

func (a *Analyzer) analyzeComponent(
	unitID string,
	component models.Component,
	samples []models.ComponentSample,
	now time.Time,
) models.ComponentStatus {
	status := models.ComponentStatus{
		UnitID:    unitID,
		Component: component,
	}

	if len(samples) == 0 {
		status.State = models.StateNoData
		status.DowntimeAging = a.window
		status.DataIncomplete = true

		return status
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	devices := make(map[string]*deviceStats)

	for _, s := range samples {
		d, ok := devices[s.Address]
		if !ok {
			d = &deviceStats{firstSample: s.Timestamp}
			devices[s.Address] = d
		}

		d.total++
		d.lastSample = s.Timestamp
		d.latestUp = s.Success

		if s.Success {
			d.successes++
			d.lastSuccess = s.Timestamp
		}

		if s.Timestamp.After(status.LastObservedAt) {
			status.LastObservedAt = s.Timestamp
		}
	}

	var (
		uptimeSum  float64
		devicesUp  int
		maxAging   time.Duration
		earliestTS time.Time
	)

	for _, d := range devices {
		uptimeSum += float64(d.successes) / float64(d.total) * 100

		if d.latestUp {
			devicesUp++
		}

		aging := deviceAging(d, now)
		if aging > maxAging {
			maxAging = aging
		}

		if earliestTS.IsZero() || d.firstSample.Before(earliestTS) {
			earliestTS = d.firstSample
		}
	}

	status.UptimePercentage = uptimeSum / float64(len(devices))
	status.State = classify(devicesUp, len(devices))

	if status.State != models.StateUp {
		status.DowntimeAging = maxAging
	}

	observedSpan := status.LastObservedAt.Sub(earliestTS)
	status.DataIncomplete = observedSpan < time.Duration(float64(a.window)*windowCoverageRatio)

	return status
}

// deviceAging is the time since the device last answered a ping. A
// device that never succeeded in the window ages from its first
// observed sample.
func deviceAging(d *deviceStats, now time.Time) time.Duration {
	if d.latestUp {
		return 0
	}

	if d.lastSuccess.IsZero() {
		return now.Sub(d.firstSample)
	}

	return now.Sub(d.lastSuccess)
}

// classify maps responsive-device counts to an operational state: at
// least half responsive is UP, any responsive is DEGRADED, none is DOWN.
func classify(up, total int) models.OperationalState {
	switch {
	case total == 0:
		return models.StateNoData
	case up*2 >= total:
		return models.StateUp
	case up > 0:
		return models.StateDegraded
	default:
		return models.StateDown
	}
}

// Verdict decides SLA compliance for one component status. NO_DATA is
// never compliant.
func (a *Analyzer) Verdict(status *models.ComponentStatus) models.SLAVerdict {
	verdict := models.SLAVerdict{
		UnitID:           status.UnitID,
		Component:        status.Component,
		UptimePercentage: status.UptimePercentage,
	}

	verdict.IsCompliant = status.State != models.StateNoData &&
		status.UptimePercentage >= a.threshold

	if !verdict.IsCompliant {
		// Estimated outage time inside the window, for summaries only.
		verdict.ViolationDuration = time.Duration(
			float64(a.window) * (100 - status.UptimePercentage) / 100,
		)
	}

	return verdict
}
