package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oceanops/fleetwatch/pkg/alerting"
	"github.com/oceanops/fleetwatch/pkg/analyzer"
	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
	"github.com/oceanops/fleetwatch/pkg/querier"
	"github.com/oceanops/fleetwatch/pkg/runlog"
)

// fakeClock advances on every Sleep and records the requested backoffs.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)

	return nil
}

func (c *fakeClock) sleptDurations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.sleeps...)
}

type engineFixture struct {
	engine   *Engine
	clock    *fakeClock
	store    db.Service
	querier  *querier.MockClient
	alerts   *MockAlertEvaluator
	workflow *MockTicketWorkflow
}

func newEngineFixture(t *testing.T, units []models.Unit) *engineFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	store, err := db.New(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	clock := newFakeClock()
	client := querier.NewMockClient(ctrl)
	alerts := NewMockAlertEvaluator(ctrl)
	workflow := NewMockTicketWorkflow(ctrl)

	workflow.EXPECT().ExpireTimeouts(gomock.Any()).Return(0, nil).AnyTimes()

	engine := New(Params{
		Units:       units,
		Querier:     client,
		Analyzer:    analyzer.New(95, 24*time.Hour),
		Alerts:      alerts,
		Workflow:    workflow,
		RunLog:      runlog.New(store),
		Store:       store,
		Clock:       clock,
		Window:      24 * time.Hour,
		BackoffBase: time.Second,
		Concurrency: 2,
		MaxAttempts: 3,
	})

	return &engineFixture{
		engine:   engine,
		clock:    clock,
		store:    store,
		querier:  client,
		alerts:   alerts,
		workflow: workflow,
	}
}

func testUnit(id string) models.Unit {
	return models.Unit{
		ID: id,
		Devices: []models.Device{
			{Address: "10.0.0.1", Component: models.ComponentServer},
		},
	}
}

func upSamples(unitID string, now time.Time) []models.ComponentSample {
	samples := make([]models.ComponentSample, 0, 24)

	for i := 0; i < 24; i++ {
		samples = append(samples, models.ComponentSample{
			UnitID:    unitID,
			Component: models.ComponentServer,
			Address:   "10.0.0.1",
			Timestamp: now.Add(-time.Duration(i) * time.Hour),
			Success:   true,
		})
	}

	return samples
}

func lastRun(t *testing.T, store db.Service) *models.SchedulerRun {
	t.Helper()

	runs, err := store.ListRecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	return &runs[0]
}

func TestSweepRetriesWithBackoff(t *testing.T) {
	unit := testUnit("vessel-01")
	f := newEngineFixture(t, []models.Unit{unit})
	now := f.clock.Now()

	gomock.InOrder(
		f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), 24*time.Hour).
			Return(nil, errors.New("connection reset")),
		f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), 24*time.Hour).
			Return(nil, errors.New("connection reset")),
		f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), 24*time.Hour).
			Return(upSamples("vessel-01", now), nil),
	)
	f.alerts.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&alerting.Outcome{}, nil)

	require.NoError(t, f.engine.RunSweep(context.Background()))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.clock.sleptDurations())

	run := lastRun(t, f.store)
	assert.Equal(t, models.RunCompleted, run.Status)
	assert.Equal(t, 1, run.SuccessfulUnits)
	assert.Equal(t, 0, run.FailedUnits)
	assert.Equal(t, 2, run.RetryAttempts)

	attempts, err := f.store.GetAttempts(run.RunID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.False(t, attempts[0].Success)
	assert.Equal(t, "connection reset", attempts[0].Error)
	assert.True(t, attempts[2].Success)
}

func TestSweepPermanentErrorShortCircuits(t *testing.T) {
	f := newEngineFixture(t, []models.Unit{testUnit("vessel-01")})

	f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &querier.QueryError{Err: errors.New("unauthorized"), Status: 401})

	require.NoError(t, f.engine.RunSweep(context.Background()))

	assert.Empty(t, f.clock.sleptDurations(), "no backoff after a permanent error")

	run := lastRun(t, f.store)
	assert.Equal(t, models.RunFailed, run.Status)
	assert.Equal(t, 1, run.FailedUnits)
	assert.Zero(t, run.RetryAttempts)

	attempts, err := f.store.GetAttempts(run.RunID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestSweepCountsSumToTotal(t *testing.T) {
	units := []models.Unit{testUnit("vessel-01"), testUnit("vessel-02")}
	f := newEngineFixture(t, units)
	now := f.clock.Now()

	f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, unit *models.Unit, _ time.Duration) ([]models.ComponentSample, error) {
			if unit.ID == "vessel-01" {
				return upSamples("vessel-01", now), nil
			}
			return nil, errors.New("unreachable")
		}).Times(4)
	f.alerts.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&alerting.Outcome{}, nil)

	require.NoError(t, f.engine.RunSweep(context.Background()))

	run := lastRun(t, f.store)
	assert.Equal(t, models.RunFailed, run.Status)
	assert.Equal(t, 2, run.TotalUnits)
	assert.Equal(t, 1, run.SuccessfulUnits)
	assert.Equal(t, 1, run.FailedUnits)
	assert.Equal(t, run.TotalUnits, run.SuccessfulUnits+run.FailedUnits)
	assert.Equal(t, 2, run.RetryAttempts)
	assert.Contains(t, run.Error, "1 of 2 units failed")
}

func TestSweepFeedsEscalatedAlertsToWorkflow(t *testing.T) {
	unit := testUnit("vessel-01")
	f := newEngineFixture(t, []models.Unit{unit})
	now := f.clock.Now()

	escalated := models.Alert{
		ID:        42,
		UnitID:    "vessel-01",
		Component: models.ComponentServer,
		State:     models.AlertOpen,
		Escalated: true,
	}

	f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(upSamples("vessel-01", now), nil)
	f.alerts.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&alerting.Outcome{
			Confirmed: []models.Alert{escalated},
			Escalated: []models.Alert{escalated},
		}, nil)
	f.workflow.EXPECT().EnsureTicket(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, alert *models.Alert, status *models.ComponentStatus, _ time.Time) error {
			assert.Equal(t, int64(42), alert.ID)
			assert.Equal(t, models.ComponentServer, status.Component)
			return nil
		})

	require.NoError(t, f.engine.RunSweep(context.Background()))
}

func TestSweepPipelineFailureMarksUnitFailed(t *testing.T) {
	f := newEngineFixture(t, []models.Unit{testUnit("vessel-01")})
	now := f.clock.Now()

	f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(upSamples("vessel-01", now), nil)
	f.alerts.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("store offline"))

	require.NoError(t, f.engine.RunSweep(context.Background()))

	run := lastRun(t, f.store)
	assert.Equal(t, models.RunFailed, run.Status)
	assert.Equal(t, 1, run.FailedUnits)
}

func TestSweepCanceledContextGatesDispatch(t *testing.T) {
	units := []models.Unit{testUnit("vessel-01"), testUnit("vessel-02")}
	f := newEngineFixture(t, units)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// No Query expectations: nothing is dispatched after cancellation.
	require.NoError(t, f.engine.RunSweep(ctx))

	run := lastRun(t, f.store)
	assert.Equal(t, models.RunFailed, run.Status)
	assert.Equal(t, 2, run.FailedUnits)
	assert.Zero(t, run.RetryAttempts)

	attempts, err := f.store.GetAttempts(run.RunID)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestSweepInFlightAttemptSurvivesCancel(t *testing.T) {
	f := newEngineFixture(t, []models.Unit{testUnit("vessel-01")})
	now := f.clock.Now()

	ctx, cancel := context.WithCancel(context.Background())

	f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(qctx context.Context, _ *models.Unit, _ time.Duration) ([]models.ComponentSample, error) {
			cancel()

			// The attempt context must outlive the shutdown signal.
			assert.NoError(t, qctx.Err())

			return upSamples("vessel-01", now), nil
		})
	f.alerts.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&alerting.Outcome{}, nil)

	require.NoError(t, f.engine.RunSweep(ctx))

	run := lastRun(t, f.store)
	assert.Equal(t, models.RunCompleted, run.Status)
	assert.Equal(t, 1, run.SuccessfulUnits)

	attempts, err := f.store.GetAttempts(run.RunID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success, "the in-flight attempt finished and logged")
}

func TestSweepCancelDuringBackoffStopsRetries(t *testing.T) {
	f := newEngineFixture(t, []models.Unit{testUnit("vessel-01")})

	ctx, cancel := context.WithCancel(context.Background())

	f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *models.Unit, time.Duration) ([]models.ComponentSample, error) {
			cancel()
			return nil, errors.New("connection reset")
		})

	require.NoError(t, f.engine.RunSweep(ctx))

	assert.Empty(t, f.clock.sleptDurations(), "backoff aborts on shutdown")

	run := lastRun(t, f.store)
	assert.Equal(t, models.RunFailed, run.Status)

	attempts, err := f.store.GetAttempts(run.RunID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1, "no retry after shutdown")
}

func TestTriggerNowRejectsConcurrentSweep(t *testing.T) {
	f := newEngineFixture(t, []models.Unit{testUnit("vessel-01")})

	require.True(t, f.engine.acquire())
	defer f.engine.release()

	_, err := f.engine.TriggerNow()
	assert.ErrorIs(t, err, ErrSweepInProgress)

	err = f.engine.RunSweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)
}

func TestSweepRecordsComponentHistory(t *testing.T) {
	f := newEngineFixture(t, []models.Unit{testUnit("vessel-01")})
	now := f.clock.Now()

	f.querier.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(upSamples("vessel-01", now), nil)
	f.alerts.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&alerting.Outcome{}, nil)

	require.NoError(t, f.engine.RunSweep(context.Background()))

	history, err := f.store.GetComponentHistory("vessel-01", models.ComponentServer, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StateUp, history[0].State)
	assert.InDelta(t, 100.0, history[0].Uptime, 0.001)
}
