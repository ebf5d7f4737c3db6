package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oceanops/fleetwatch/pkg/analyzer"
	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
)

const escalationAge = 72 * time.Hour

func newTestManager(t *testing.T, alerters ...AlertService) (*Manager, db.Service) {
	t.Helper()

	store, err := db.New(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return NewManager(store, alerters, escalationAge), store
}

func unit() *models.Unit {
	return &models.Unit{
		ID: "vessel-01",
		Devices: []models.Device{
			{Address: "10.0.1.3", Component: models.ComponentServer},
		},
	}
}

func violation(uptime float64, aging time.Duration) ([]models.ComponentStatus, []models.SLAVerdict) {
	statuses := []models.ComponentStatus{{
		UnitID:           "vessel-01",
		Component:        models.ComponentServer,
		UptimePercentage: uptime,
		State:            models.StateDown,
		DowntimeAging:    aging,
	}}
	verdicts := []models.SLAVerdict{{
		UnitID:           "vessel-01",
		Component:        models.ComponentServer,
		IsCompliant:      false,
		UptimePercentage: uptime,
	}}

	return statuses, verdicts
}

func compliance() ([]models.ComponentStatus, []models.SLAVerdict) {
	statuses := []models.ComponentStatus{{
		UnitID:           "vessel-01",
		Component:        models.ComponentServer,
		UptimePercentage: 99,
		State:            models.StateUp,
	}}
	verdicts := []models.SLAVerdict{{
		UnitID:           "vessel-01",
		Component:        models.ComponentServer,
		IsCompliant:      true,
		UptimePercentage: 99,
	}}

	return statuses, verdicts
}

func TestEvaluateRaisesOnce(t *testing.T) {
	m, store := newTestManager(t)
	now := time.Now().UTC().Truncate(time.Second)

	statuses, verdicts := violation(80, 4*time.Hour)

	outcome, err := m.Evaluate(context.Background(), unit(), statuses, verdicts, now)
	require.NoError(t, err)
	require.Len(t, outcome.Raised, 1)
	assert.Empty(t, outcome.Escalated)

	// Same violation on the next sweep only refreshes the alert.
	later := now.Add(24 * time.Hour)
	statuses[0].DowntimeAging = 28 * time.Hour

	outcome, err = m.Evaluate(context.Background(), unit(), statuses, verdicts, later)
	require.NoError(t, err)
	assert.Empty(t, outcome.Raised)
	require.Len(t, outcome.Confirmed, 1)

	open, err := store.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, later, open.LastConfirmedAt.UTC())
	assert.Equal(t, now, open.RaisedAt.UTC())
	assert.False(t, open.Escalated)
}

func TestEvaluateEscalatesExactlyOnce(t *testing.T) {
	m, store := newTestManager(t)
	now := time.Now().UTC().Truncate(time.Second)

	statuses, verdicts := violation(60, 4*time.Hour)
	_, err := m.Evaluate(context.Background(), unit(), statuses, verdicts, now)
	require.NoError(t, err)

	// Aging crosses the escalation threshold.
	statuses[0].DowntimeAging = escalationAge + time.Hour

	outcome, err := m.Evaluate(context.Background(), unit(), statuses, verdicts, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, outcome.Escalated, 1)
	assert.True(t, outcome.Escalated[0].Escalated)

	// Still violating on later sweeps: no second escalation.
	statuses[0].DowntimeAging = escalationAge + 25*time.Hour

	outcome, err = m.Evaluate(context.Background(), unit(), statuses, verdicts, now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, outcome.Escalated)

	open, err := store.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	assert.True(t, open.Escalated)
}

// failingSamples covers the full window with hourly pings that all
// failed.
func failingSamples(u *models.Unit, window time.Duration, now time.Time) []models.ComponentSample {
	var samples []models.ComponentSample

	for _, d := range u.Devices {
		for offset := time.Duration(0); offset <= window; offset += time.Hour {
			samples = append(samples, models.ComponentSample{
				UnitID:    u.ID,
				Component: d.Component,
				Address:   d.Address,
				Timestamp: now.Add(-offset),
				Success:   false,
			})
		}
	}

	return samples
}

// A component down across several daily sweeps must escalate when the
// episode age reaches the escalation threshold, even though each
// sweep's analyzer view is bounded by the query window.
func TestEscalationAcrossDailySweeps(t *testing.T) {
	m, store := newTestManager(t)

	window := 24 * time.Hour
	a := analyzer.New(95, window)
	u := unit()
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var escalatedOn int

	for day := 1; day <= 5; day++ {
		now := start.Add(time.Duration(day) * 24 * time.Hour)

		statuses := a.Analyze(u, failingSamples(u, window, now), now)
		require.Len(t, statuses, 1)
		assert.Equal(t, models.StateDown, statuses[0].State)

		verdicts := []models.SLAVerdict{a.Verdict(&statuses[0])}
		require.False(t, verdicts[0].IsCompliant)

		outcome, err := m.Evaluate(context.Background(), u, statuses, verdicts, now)
		require.NoError(t, err)

		if day == 1 {
			require.Len(t, outcome.Raised, 1, "day 1 raises the alert")
		}

		if len(outcome.Escalated) > 0 {
			require.Zero(t, escalatedOn, "escalated a second time on day %d", day)
			escalatedOn = day
		}
	}

	assert.Equal(t, 3, escalatedOn, "escalation fires on the sweep where the episode reaches 72h")

	open, err := store.GetOpenAlert(u.ID, models.ComponentServer)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.True(t, open.Escalated)
	assert.Equal(t, 5*24*time.Hour, open.DowntimeAging, "aging keeps accruing after escalation")
}

func TestRaiseEscalatesImmediatelyPastThreshold(t *testing.T) {
	store, err := db.New(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	// Escalation age shorter than one monitoring window: the very
	// first violating sweep is already past it.
	m := NewManager(store, nil, 12*time.Hour)
	now := time.Now().UTC().Truncate(time.Second)

	statuses, verdicts := violation(0, 24*time.Hour)

	outcome, err := m.Evaluate(context.Background(), unit(), statuses, verdicts, now)
	require.NoError(t, err)
	require.Len(t, outcome.Raised, 1)
	require.Len(t, outcome.Escalated, 1)

	open, err := store.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	assert.True(t, open.Escalated)
}

func TestEvaluateRecovery(t *testing.T) {
	m, store := newTestManager(t)
	now := time.Now().UTC().Truncate(time.Second)

	statuses, verdicts := violation(70, 2*time.Hour)
	outcome, err := m.Evaluate(context.Background(), unit(), statuses, verdicts, now)
	require.NoError(t, err)
	require.Len(t, outcome.Raised, 1)

	alertID := outcome.Raised[0].ID
	require.NoError(t, store.SetAlertTicket(alertID, "OPS-42"))
	require.NoError(t, store.SaveTicket(&models.Ticket{
		Ref:       "OPS-42",
		AlertID:   alertID,
		UnitID:    "vessel-01",
		Component: models.ComponentServer,
		Status:    models.TicketCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	statuses, verdicts = compliance()

	outcome, err = m.Evaluate(context.Background(), unit(), statuses, verdicts, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, outcome.Recovered, 1)
	assert.Equal(t, "OPS-42", outcome.Recovered[0].TicketRef)

	open, err := store.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	assert.Nil(t, open)

	// Next violation starts a fresh episode with a new alert.
	statuses, verdicts = violation(50, time.Hour)

	outcome, err = m.Evaluate(context.Background(), unit(), statuses, verdicts, now.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, outcome.Raised, 1)
	assert.NotEqual(t, alertID, outcome.Raised[0].ID)
	assert.False(t, outcome.Raised[0].Escalated)
}

func TestEvaluateCompliantNoAlert(t *testing.T) {
	m, store := newTestManager(t)

	statuses, verdicts := compliance()

	outcome, err := m.Evaluate(context.Background(), unit(), statuses, verdicts, time.Now())
	require.NoError(t, err)
	assert.Empty(t, outcome.Raised)
	assert.Empty(t, outcome.Recovered)

	alerts, err := store.ListOpenAlerts()
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestNotificationsFired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	alerter := NewMockAlertService(ctrl)
	m, _ := newTestManager(t, alerter)

	now := time.Now().UTC().Truncate(time.Second)

	// Raise.
	alerter.EXPECT().IsEnabled().Return(true)
	alerter.EXPECT().Alert(gomock.Any(), gomock.AssignableToTypeOf(&WebhookAlert{})).
		DoAndReturn(func(_ context.Context, a *WebhookAlert) error {
			assert.Equal(t, Warning, a.Level)
			return nil
		})

	statuses, verdicts := violation(80, 4*time.Hour)
	_, err := m.Evaluate(context.Background(), unit(), statuses, verdicts, now)
	require.NoError(t, err)

	// Escalation.
	alerter.EXPECT().IsEnabled().Return(true)
	alerter.EXPECT().Alert(gomock.Any(), gomock.AssignableToTypeOf(&WebhookAlert{})).
		DoAndReturn(func(_ context.Context, a *WebhookAlert) error {
			assert.Equal(t, Error, a.Level)
			return nil
		})

	statuses[0].DowntimeAging = escalationAge + time.Hour
	_, err = m.Evaluate(context.Background(), unit(), statuses, verdicts, now.Add(24*time.Hour))
	require.NoError(t, err)

	// Recovery; delivery failure must not fail the evaluation.
	alerter.EXPECT().IsEnabled().Return(true)
	alerter.EXPECT().Alert(gomock.Any(), gomock.Any()).Return(errWebhookStatus)

	statuses, verdicts = compliance()
	_, err = m.Evaluate(context.Background(), unit(), statuses, verdicts, now.Add(48*time.Hour))
	require.NoError(t, err)
}
