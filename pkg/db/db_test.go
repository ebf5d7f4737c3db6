package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanops/fleetwatch/pkg/models"
)

func newTestDB(t *testing.T) Service {
	t.Helper()

	svc, err := New(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = svc.Close()
	})

	return svc
}

func TestRunLifecycle(t *testing.T) {
	svc := newTestDB(t)

	start := time.Now().UTC().Truncate(time.Second)
	run := &models.SchedulerRun{
		RunID:      "run-1",
		StartTime:  start,
		TotalUnits: 3,
		Status:     models.RunRunning,
	}

	require.NoError(t, svc.CreateRun(run))

	active, err := svc.GetActiveRun()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "run-1", active.RunID)

	require.NoError(t, svc.RecordAttempt(&models.UnitAttempt{
		RunID:         "run-1",
		UnitID:        "vessel-01",
		AttemptNumber: 1,
		Success:       false,
		Duration:      1500 * time.Millisecond,
		Error:         "connection refused",
		Timestamp:     start,
	}))
	require.NoError(t, svc.RecordAttempt(&models.UnitAttempt{
		RunID:         "run-1",
		UnitID:        "vessel-01",
		AttemptNumber: 2,
		Success:       true,
		Duration:      800 * time.Millisecond,
		Timestamp:     start.Add(2 * time.Second),
	}))

	end := start.Add(time.Minute)
	run.EndTime = &end
	run.SuccessfulUnits = 3
	run.RetryAttempts = 1
	run.Status = models.RunCompleted
	require.NoError(t, svc.FinishRun(run))

	got, err := svc.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, got.Status)
	assert.Equal(t, 3, got.SuccessfulUnits)
	assert.Equal(t, 1, got.RetryAttempts)
	require.NotNil(t, got.EndTime)

	attempts, err := svc.GetAttempts("run-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 1, attempts[0].AttemptNumber)
	assert.Equal(t, "connection refused", attempts[0].Error)
	assert.Equal(t, 1500*time.Millisecond, attempts[0].Duration)
	assert.True(t, attempts[1].Success)

	active, err = svc.GetActiveRun()
	require.NoError(t, err)
	assert.Nil(t, active)

	runs, err := svc.ListRecentRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestFinishRunUnknownID(t *testing.T) {
	svc := newTestDB(t)

	end := time.Now()
	err := svc.FinishRun(&models.SchedulerRun{RunID: "nope", EndTime: &end, Status: models.RunFailed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRunNotFound(t *testing.T) {
	svc := newTestDB(t)

	_, err := svc.GetRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAlertDeduplication(t *testing.T) {
	svc := newTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	alert := &models.Alert{
		UnitID:          "vessel-01",
		Component:       models.ComponentServer,
		RaisedAt:        now,
		LastConfirmedAt: now,
		Uptime:          80,
		DowntimeAging:   4 * time.Hour,
	}

	id, err := svc.CreateAlert(alert)
	require.NoError(t, err)
	assert.Positive(t, id)

	// Second open alert for the same pair violates the partial unique index.
	_, err = svc.CreateAlert(alert)
	assert.Error(t, err)

	open, err := svc.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, id, open.ID)
	assert.False(t, open.Escalated)

	later := now.Add(24 * time.Hour)
	require.NoError(t, svc.ConfirmAlert(id, later, 70, 28*time.Hour))
	require.NoError(t, svc.EscalateAlert(id))
	require.NoError(t, svc.SetAlertTicket(id, "OPS-101"))

	open, err = svc.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	assert.True(t, open.Escalated)
	assert.Equal(t, "OPS-101", open.TicketRef)
	assert.Equal(t, later, open.LastConfirmedAt.UTC())
	assert.Equal(t, 28*time.Hour, open.DowntimeAging)

	require.NoError(t, svc.ResolveAlert(id, later))

	open, err = svc.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	assert.Nil(t, open)

	// A new violation after recovery opens a fresh alert.
	id2, err := svc.CreateAlert(alert)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestTicketRecords(t *testing.T) {
	svc := newTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	alertID, err := svc.CreateAlert(&models.Alert{
		UnitID:          "vessel-02",
		Component:       models.ComponentDashboard,
		RaisedAt:        now,
		LastConfirmedAt: now,
	})
	require.NoError(t, err)

	ticket := &models.Ticket{
		Ref:       "OPS-200",
		AlertID:   alertID,
		UnitID:    "vessel-02",
		Component: models.ComponentDashboard,
		Status:    models.TicketCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, svc.SaveTicket(ticket))

	require.NoError(t, svc.UpdateTicketStatus("OPS-200", models.TicketUpdated, now.Add(time.Hour)))
	assert.ErrorIs(t, svc.UpdateTicketStatus("OPS-999", models.TicketResolved, now), ErrNotFound)
}

func TestComponentHistory(t *testing.T) {
	svc := newTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecordComponentStatus(&models.ComponentStatus{
			UnitID:           "vessel-01",
			Component:        models.ComponentServer,
			UptimePercentage: float64(90 + i),
			State:            models.StateUp,
			DowntimeAging:    0,
		}, base.Add(time.Duration(i)*time.Hour)))
	}

	require.NoError(t, svc.RecordComponentStatus(&models.ComponentStatus{
		UnitID:           "vessel-01",
		Component:        models.ComponentDashboard,
		UptimePercentage: 50,
		State:            models.StateDown,
		DowntimeAging:    6 * time.Hour,
	}, base.Add(2*time.Hour)))

	history, err := svc.GetComponentHistory("vessel-01", models.ComponentServer, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.InDelta(t, 92.0, history[0].Uptime, 0.001) // newest first

	snapshot, err := svc.GetFleetSnapshot()
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, models.ComponentDashboard, snapshot[0].Component)
	assert.Equal(t, 6*time.Hour, snapshot[0].DowntimeAging)
	assert.InDelta(t, 92.0, snapshot[1].Uptime, 0.001)
}

func TestApprovals(t *testing.T) {
	svc := newTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	req := &models.ApprovalRequest{
		ID:          "req-1",
		AlertID:     1,
		UnitID:      "vessel-03",
		Component:   models.ComponentAccessPoint,
		Severity:    models.SeverityHigh,
		Summary:     "access_point down 4 days",
		State:       models.ApprovalPending,
		RequestedAt: now,
		ExpiresAt:   now.Add(time.Hour),
	}

	require.NoError(t, svc.SaveApproval(req))
	require.NoError(t, svc.AppendApprovalAudit("req-1", "requested", "", "escalation", now))

	pending, err := svc.ListPendingApprovals()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "req-1", pending[0].ID)

	decided := now.Add(10 * time.Minute)
	req.State = models.ApprovalApproved
	req.DecidedAt = &decided
	req.Approver = "ops-lead"
	req.Comments = "go ahead"
	require.NoError(t, svc.UpdateApproval(req))
	require.NoError(t, svc.AppendApprovalAudit("req-1", "approved", "ops-lead", "go ahead", decided))

	got, err := svc.GetApproval("req-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, got.State)
	assert.Equal(t, "ops-lead", got.Approver)
	require.NotNil(t, got.DecidedAt)

	pending, err = svc.ListPendingApprovals()
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = svc.GetApproval("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanOldData(t *testing.T) {
	svc := newTestDB(t)

	old := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, svc.CreateRun(&models.SchedulerRun{
		RunID:     "old-run",
		StartTime: old,
		Status:    models.RunCompleted,
	}))
	require.NoError(t, svc.RecordAttempt(&models.UnitAttempt{
		RunID:         "old-run",
		UnitID:        "vessel-01",
		AttemptNumber: 1,
		Success:       true,
		Timestamp:     old,
	}))

	recent := time.Now()
	require.NoError(t, svc.CreateRun(&models.SchedulerRun{
		RunID:     "new-run",
		StartTime: recent,
		Status:    models.RunRunning,
	}))

	require.NoError(t, svc.CleanOldData(30*24*time.Hour))

	_, err := svc.GetRun("old-run")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetRun("new-run")
	assert.NoError(t, err)
}
