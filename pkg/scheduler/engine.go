// Package scheduler orchestrates fleet sweeps: bounded fan-out over the
// units, per-unit retry with exponential backoff, and the downstream
// analysis/alerting/ticketing pipeline.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/oceanops/fleetwatch/pkg/alerting"
	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
	"github.com/oceanops/fleetwatch/pkg/querier"
	"github.com/oceanops/fleetwatch/pkg/runlog"
)

// ErrSweepInProgress is returned when a sweep is requested while one is
// already running.
var ErrSweepInProgress = errors.New("a sweep is already in progress")

const (
	defaultInterval    = 24 * time.Hour
	defaultConcurrency = 10
	defaultMaxAttempts = 3
	defaultBackoffBase = time.Second
	expiryCheckPeriod  = time.Minute
)

// Analyzer is the pure status/verdict derivation the engine feeds with
// collected samples.
type Analyzer interface {
	Analyze(unit *models.Unit, samples []models.ComponentSample, now time.Time) []models.ComponentStatus
	Verdict(status *models.ComponentStatus) models.SLAVerdict
}

// Params carries everything an Engine needs. Zero values fall back to
// defaults where one exists.
type Params struct {
	Units       []models.Unit
	Querier     querier.Client
	Analyzer    Analyzer
	Alerts      AlertEvaluator
	Workflow    TicketWorkflow
	RunLog      *runlog.Logger
	Store       db.Service
	Clock       Clock
	Events      EventSink
	Interval    time.Duration
	Window      time.Duration
	Retention   time.Duration
	BackoffBase time.Duration
	Concurrency int
	MaxAttempts int
}

// Engine runs sweeps over the fleet on a fixed cadence and on demand.
// At most one sweep is in flight at a time.
type Engine struct {
	units       []models.Unit
	querier     querier.Client
	analyzer    Analyzer
	alerts      AlertEvaluator
	workflow    TicketWorkflow
	runs        *runlog.Logger
	store       db.Service
	clock       Clock
	events      EventSink
	interval    time.Duration
	window      time.Duration
	retention   time.Duration
	backoffBase time.Duration
	concurrency int
	maxAttempts int

	mu       sync.Mutex
	sweeping bool
	baseCtx  context.Context
}

// New builds an engine from the given params.
func New(p Params) *Engine {
	if p.Clock == nil {
		p.Clock = realClock{}
	}

	if p.Concurrency <= 0 {
		p.Concurrency = defaultConcurrency
	}

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}

	if p.BackoffBase <= 0 {
		p.BackoffBase = defaultBackoffBase
	}

	if p.Interval <= 0 {
		p.Interval = defaultInterval
	}

	return &Engine{
		units:       p.Units,
		querier:     p.Querier,
		analyzer:    p.Analyzer,
		alerts:      p.Alerts,
		workflow:    p.Workflow,
		runs:        p.RunLog,
		store:       p.Store,
		clock:       p.Clock,
		events:      p.Events,
		interval:    p.Interval,
		window:      p.Window,
		retention:   p.Retention,
		backoffBase: p.BackoffBase,
		concurrency: p.Concurrency,
		maxAttempts: p.MaxAttempts,
		baseCtx:     context.Background(),
	}
}

// Start runs scheduled sweeps until the context is canceled. An initial
// sweep fires immediately, then one per interval.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()

	log.WithFields(log.Fields{
		"interval": e.interval,
		"units":    len(e.units),
	}).Info("Sweep engine starting")

	if err := e.RunSweep(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
		log.Errorf("Initial sweep failed: %v", err)
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	expiry := time.NewTicker(expiryCheckPeriod)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.RunSweep(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
				log.Errorf("Scheduled sweep failed: %v", err)
			}
		case <-expiry.C:
			if err := e.expireApprovals(); err != nil {
				log.Errorf("Approval expiry check failed: %v", err)
			}
		}
	}
}

// TriggerNow starts an on-demand sweep in the background and returns
// its run ID, or ErrSweepInProgress when one is already running.
func (e *Engine) TriggerNow() (string, error) {
	if !e.acquire() {
		return "", ErrSweepInProgress
	}

	runID := uuid.New().String()

	e.mu.Lock()
	ctx := e.baseCtx
	e.mu.Unlock()

	go func() {
		defer e.release()

		if err := e.sweep(ctx, runID); err != nil {
			log.Errorf("On-demand sweep %s failed: %v", runID, err)
		}
	}()

	return runID, nil
}

// RunSweep performs one complete sweep synchronously.
func (e *Engine) RunSweep(ctx context.Context) error {
	if !e.acquire() {
		return ErrSweepInProgress
	}
	defer e.release()

	return e.sweep(ctx, uuid.New().String())
}

func (e *Engine) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sweeping {
		return false
	}

	e.sweeping = true

	return true
}

func (e *Engine) release() {
	e.mu.Lock()
	e.sweeping = false
	e.mu.Unlock()
}

type unitResult struct {
	unitID   string
	success  bool
	attempts int
}

func (e *Engine) sweep(ctx context.Context, runID string) error {
	run := &models.SchedulerRun{
		RunID:      runID,
		StartTime:  e.clock.Now(),
		TotalUnits: len(e.units),
	}

	if err := e.runs.Start(run); err != nil {
		return err
	}

	e.publish("run_started", run)

	// Shutdown must not abort an attempt mid-flight: attempts run under
	// a context that survives cancellation, while new dispatches and
	// retry backoff are gated on the lifecycle context. Undispatched
	// units count as failed, marking the run's coverage incomplete.
	attemptCtx := context.WithoutCancel(ctx)

	sem := make(chan struct{}, e.concurrency)
	results := make(chan unitResult, len(e.units))

	var wg sync.WaitGroup

	for i := range e.units {
		wg.Add(1)

		go func(unit *models.Unit) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results <- unitResult{unitID: unit.ID}
				return
			}

			results <- e.processUnit(ctx, attemptCtx, runID, unit)
		}(&e.units[i])
	}

	wg.Wait()
	close(results)

	for res := range results {
		if res.success {
			run.SuccessfulUnits++
		} else {
			run.FailedUnits++
		}

		if res.attempts > 0 {
			run.RetryAttempts += res.attempts - 1
		}
	}

	end := e.clock.Now()
	run.EndTime = &end
	run.Status = models.RunCompleted

	if run.FailedUnits > 0 {
		run.Status = models.RunFailed
		run.Error = fmt.Sprintf("%d of %d units failed", run.FailedUnits, run.TotalUnits)
	}

	if err := e.runs.Finish(run); err != nil {
		return err
	}

	e.publish("run_finished", run)

	if err := e.expireApprovals(); err != nil {
		log.Errorf("Approval expiry check failed: %v", err)
	}

	if e.retention > 0 {
		if err := e.runs.CleanupOldRuns(e.retention); err != nil {
			log.Errorf("Retention cleanup failed: %v", err)
		}
	}

	return nil
}

// processUnit queries one unit with retry. Every attempt is written to
// the audit log before the next begins; if that write fails the unit is
// abandoned for this sweep. ctx gates retries; attemptCtx carries the
// attempts themselves so a shutdown lets the current one finish.
func (e *Engine) processUnit(ctx, attemptCtx context.Context, runID string, unit *models.Unit) unitResult {
	res := unitResult{unitID: unit.ID}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		res.attempts = attempt

		start := e.clock.Now()
		samples, err := e.querier.Query(attemptCtx, unit, e.window)
		record := &models.UnitAttempt{
			RunID:         runID,
			UnitID:        unit.ID,
			AttemptNumber: attempt,
			Success:       err == nil,
			Duration:      e.clock.Now().Sub(start),
			Timestamp:     start,
		}

		if err != nil {
			record.Error = err.Error()
		}

		if logErr := e.runs.RecordAttempt(record); logErr != nil {
			log.WithFields(log.Fields{
				"run":  runID,
				"unit": unit.ID,
			}).Errorf("Failed to record attempt, abandoning unit: %v", logErr)

			return res
		}

		if err == nil {
			res.success = e.runPipeline(attemptCtx, unit, samples)
			return res
		}

		log.WithFields(log.Fields{
			"run":     runID,
			"unit":    unit.ID,
			"attempt": attempt,
		}).Warnf("Unit query failed: %v", err)

		if !querier.IsRetryable(err) {
			log.WithField("unit", unit.ID).Warn("Permanent error, skipping remaining attempts")
			return res
		}

		if attempt == e.maxAttempts {
			break
		}

		backoff := e.backoffBase << (attempt - 1)
		if sleepErr := e.clock.Sleep(ctx, backoff); sleepErr != nil {
			return res
		}
	}

	return res
}

// runPipeline pushes one unit's samples through analysis, alert
// evaluation and ticketing. A failure here marks the unit failed but
// never touches the rest of the sweep.
func (e *Engine) runPipeline(ctx context.Context, unit *models.Unit, samples []models.ComponentSample) bool {
	now := e.clock.Now()

	statuses := e.analyzer.Analyze(unit, samples, now)
	verdicts := make([]models.SLAVerdict, len(statuses))

	for i := range statuses {
		verdicts[i] = e.analyzer.Verdict(&statuses[i])

		if err := e.store.RecordComponentStatus(&statuses[i], now); err != nil {
			log.WithField("unit", unit.ID).Errorf("Failed to record component status: %v", err)
			return false
		}
	}

	outcome, err := e.alerts.Evaluate(ctx, unit, statuses, verdicts, now)
	if err != nil {
		log.WithField("unit", unit.ID).Errorf("Alert evaluation failed: %v", err)
		return false
	}

	e.publishOutcome(outcome)

	for _, alert := range escalatedAlerts(outcome) {
		status := matchStatus(statuses, alert.Component)
		if status == nil {
			continue
		}

		if err := e.workflow.EnsureTicket(ctx, &alert, status, now); err != nil {
			log.WithFields(log.Fields{
				"unit":      alert.UnitID,
				"component": alert.Component,
			}).Errorf("Ticket workflow failed: %v", err)
		}
	}

	return true
}

// escalatedAlerts collects the open escalated alerts this evaluation
// touched, deduplicated by ID.
func escalatedAlerts(outcome *alerting.Outcome) []models.Alert {
	byID := make(map[int64]models.Alert)

	for _, alert := range outcome.Confirmed {
		if alert.Escalated {
			byID[alert.ID] = alert
		}
	}

	for _, alert := range outcome.Escalated {
		byID[alert.ID] = alert
	}

	alerts := make([]models.Alert, 0, len(byID))
	for _, alert := range byID {
		alerts = append(alerts, alert)
	}

	return alerts
}

func matchStatus(statuses []models.ComponentStatus, component models.Component) *models.ComponentStatus {
	for i := range statuses {
		if statuses[i].Component == component {
			return &statuses[i]
		}
	}

	return nil
}

func (e *Engine) expireApprovals() error {
	expired, err := e.workflow.ExpireTimeouts(e.clock.Now())
	if err != nil {
		return err
	}

	if expired > 0 {
		log.WithField("count", expired).Info("Expired stale approval requests")
		e.publish("approvals_expired", map[string]int{"count": expired})
	}

	return nil
}

func (e *Engine) publish(event string, payload interface{}) {
	if e.events != nil {
		e.events.Publish(event, payload)
	}
}

func (e *Engine) publishOutcome(outcome *alerting.Outcome) {
	for i := range outcome.Raised {
		e.publish("alert_raised", outcome.Raised[i])
	}

	for i := range outcome.Escalated {
		e.publish("alert_escalated", outcome.Escalated[i])
	}

	for i := range outcome.Recovered {
		e.publish("alert_recovered", outcome.Recovered[i])
	}
}
