package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
)

const approvalTimeout = time.Hour

type workflowFixture struct {
	workflow  *Workflow
	store     db.Service
	ticketing *MockTicketingClient
	notifier  *MockNotifier
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	store, err := db.New(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	ticketing := NewMockTicketingClient(ctrl)
	notifier := NewMockNotifier(ctrl)

	return &workflowFixture{
		workflow:  NewWorkflow(store, ticketing, notifier, approvalTimeout),
		store:     store,
		ticketing: ticketing,
		notifier:  notifier,
	}
}

func escalatedAlert(t *testing.T, store db.Service, now time.Time) *models.Alert {
	t.Helper()

	alert := &models.Alert{
		UnitID:          "vessel-01",
		Component:       models.ComponentServer,
		State:           models.AlertOpen,
		RaisedAt:        now.Add(-4 * 24 * time.Hour),
		LastConfirmedAt: now,
		Uptime:          55,
		DowntimeAging:   4 * 24 * time.Hour,
	}

	id, err := store.CreateAlert(alert)
	require.NoError(t, err)
	require.NoError(t, store.EscalateAlert(id))

	alert.ID = id
	alert.Escalated = true

	return alert
}

func downStatus() *models.ComponentStatus {
	return &models.ComponentStatus{
		UnitID:           "vessel-01",
		Component:        models.ComponentServer,
		UptimePercentage: 55,
		State:            models.StateDown,
		DowntimeAging:    4 * 24 * time.Hour,
	}
}

func TestEnsureTicketRequestsApproval(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)
	alert := escalatedAlert(t, f.store, now)

	f.ticketing.EXPECT().FindOpen(gomock.Any(), "vessel-01", models.ComponentServer).Return("", nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg string) error {
			assert.Contains(t, msg, "vessel-01")
			assert.Contains(t, msg, "high") // 4 days down
			return nil
		})

	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now))

	pending, err := f.store.ListPendingApprovals()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, alert.ID, pending[0].AlertID)
	assert.Equal(t, models.SeverityHigh, pending[0].Severity)
	assert.Equal(t, now.Add(approvalTimeout), pending[0].ExpiresAt.UTC())

	// Second sweep with the request still pending: no new request, no
	// external calls.
	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now.Add(time.Minute)))

	pending, err = f.store.ListPendingApprovals()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEnsureTicketAdoptsExistingTicket(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)
	alert := escalatedAlert(t, f.store, now)

	f.ticketing.EXPECT().FindOpen(gomock.Any(), "vessel-01", models.ComponentServer).Return("OPS-7", nil)

	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now))
	assert.Equal(t, "OPS-7", alert.TicketRef)

	open, err := f.store.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	assert.Equal(t, "OPS-7", open.TicketRef)

	pending, err := f.store.ListPendingApprovals()
	require.NoError(t, err)
	assert.Empty(t, pending, "no approval needed when a ticket already exists")
}

func TestEnsureTicketUpdatesLinkedTicket(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)
	alert := escalatedAlert(t, f.store, now)

	require.NoError(t, f.store.SetAlertTicket(alert.ID, "OPS-9"))
	require.NoError(t, f.store.SaveTicket(&models.Ticket{
		Ref:       "OPS-9",
		AlertID:   alert.ID,
		UnitID:    alert.UnitID,
		Component: alert.Component,
		Status:    models.TicketCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	alert.TicketRef = "OPS-9"

	f.ticketing.EXPECT().Update(gomock.Any(), "OPS-9", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, comment string) error {
			assert.Contains(t, comment, "55.00%")
			return nil
		})

	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now.Add(24*time.Hour)))
}

func TestDecideApproved(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)
	alert := escalatedAlert(t, f.store, now)

	f.ticketing.EXPECT().FindOpen(gomock.Any(), gomock.Any(), gomock.Any()).Return("", nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now))

	pending, err := f.store.ListPendingApprovals()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	f.ticketing.EXPECT().Create(gomock.Any(), gomock.Any()).Return("OPS-100", nil)

	decided, err := f.workflow.Decide(context.Background(), &models.Decision{
		RequestID: pending[0].ID,
		Approved:  true,
		Approver:  "ops-lead",
		Comments:  "confirmed outage",
	}, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, decided.State)
	assert.Equal(t, "ops-lead", decided.Approver)

	open, err := f.store.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	assert.Equal(t, "OPS-100", open.TicketRef)

	// A decided request cannot be decided again.
	_, err = f.workflow.Decide(context.Background(), &models.Decision{
		RequestID: pending[0].ID,
		Approved:  false,
		Approver:  "someone-else",
	}, now.Add(20*time.Minute))
	assert.ErrorIs(t, err, ErrApprovalNotPending)
}

func TestDecideDeniedAllowsNewRequest(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)
	alert := escalatedAlert(t, f.store, now)

	f.ticketing.EXPECT().FindOpen(gomock.Any(), gomock.Any(), gomock.Any()).Return("", nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now))

	pending, err := f.store.ListPendingApprovals()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	decided, err := f.workflow.Decide(context.Background(), &models.Decision{
		RequestID: pending[0].ID,
		Approved:  false,
		Approver:  "ops-lead",
		Comments:  "planned maintenance",
	}, now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalDenied, decided.State)

	open, err := f.store.GetOpenAlert("vessel-01", models.ComponentServer)
	require.NoError(t, err)
	assert.Empty(t, open.TicketRef, "denial must not create a ticket")

	// The alert is eligible again on the next sweep.
	f.ticketing.EXPECT().FindOpen(gomock.Any(), gomock.Any(), gomock.Any()).Return("", nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now.Add(24*time.Hour)))

	pending, err = f.store.ListPendingApprovals()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDecideExpiredRequest(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)
	alert := escalatedAlert(t, f.store, now)

	f.ticketing.EXPECT().FindOpen(gomock.Any(), gomock.Any(), gomock.Any()).Return("", nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now))

	pending, err := f.store.ListPendingApprovals()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.workflow.Decide(context.Background(), &models.Decision{
		RequestID: pending[0].ID,
		Approved:  true,
		Approver:  "ops-lead",
	}, now.Add(approvalTimeout+time.Minute))
	assert.ErrorIs(t, err, ErrApprovalExpired)
}

func TestExpireTimeouts(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)
	alert := escalatedAlert(t, f.store, now)

	f.ticketing.EXPECT().FindOpen(gomock.Any(), gomock.Any(), gomock.Any()).Return("", nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now))

	expired, err := f.workflow.ExpireTimeouts(now.Add(30 * time.Minute))
	require.NoError(t, err)
	assert.Zero(t, expired, "not yet past the deadline")

	expired, err = f.workflow.ExpireTimeouts(now.Add(approvalTimeout + time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	pending, err := f.store.ListPendingApprovals()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestHistoryContextInSummary(t *testing.T) {
	f := newWorkflowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)
	alert := escalatedAlert(t, f.store, now)

	require.NoError(t, f.store.RecordComponentStatus(&models.ComponentStatus{
		UnitID:           "vessel-01",
		Component:        models.ComponentServer,
		UptimePercentage: 58,
		State:            models.StateDown,
		DowntimeAging:    3 * 24 * time.Hour,
	}, now.Add(-24*time.Hour)))

	f.ticketing.EXPECT().FindOpen(gomock.Any(), gomock.Any(), gomock.Any()).Return("", nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, f.workflow.EnsureTicket(context.Background(), alert, downStatus(), now))

	pending, err := f.store.ListPendingApprovals()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].Summary, "uptime 58.0%")
	assert.Contains(t, pending[0].Summary, "down")
}
