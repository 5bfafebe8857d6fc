package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBudgets struct {
	recalculated []string
	recalcErr    map[string]error
	alerts       []core.BudgetAlert
	alertsErr    error
}

func (f *fakeBudgets) RecalculateSpend(_ context.Context, categoryID string) (int, error) {
	f.recalculated = append(f.recalculated, categoryID)
	if err := f.recalcErr[categoryID]; err != nil {
		return 0, err
	}
	return 1, nil
}

func (f *fakeBudgets) GetBudgetAlerts(context.Context) ([]core.BudgetAlert, error) {
	return f.alerts, f.alertsErr
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []*amqp.BudgetAlertMessage
	fail bool
}

func (p *fakePublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("channel closed")
	}
	p.sent = append(p.sent, msg)
	return nil
}

func newWorker(budgets *fakeBudgets, pub *fakePublisher, now *time.Time) *BudgetWorker {
	return NewBudgetWorker(budgets, pub, applog.Discard()).WithClock(func() time.Time { return *now })
}

func TestHandleTransactionEvent_RecalculatesBothCategories(t *testing.T) {
	budgets := &fakeBudgets{}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	w := newWorker(budgets, &fakePublisher{}, &now)

	err := w.HandleTransactionEvent(context.Background(), &amqp.TransactionEvent{
		TransactionID:      "tx-1",
		Action:             amqp.ActionUpdated,
		CategoryID:         "new",
		PreviousCategoryID: "old",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, budgets.recalculated)
}

func TestHandleTransactionEvent_ReportsFailures(t *testing.T) {
	budgets := &fakeBudgets{recalcErr: map[string]error{"old": errors.New("database is locked")}}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	w := newWorker(budgets, &fakePublisher{}, &now)

	err := w.HandleTransactionEvent(context.Background(), &amqp.TransactionEvent{
		TransactionID:      "tx-1",
		Action:             amqp.ActionUpdated,
		CategoryID:         "new",
		PreviousCategoryID: "old",
	})

	assert.ErrorContains(t, err, "recalculate category old")
	assert.Equal(t, []string{"new", "old"}, budgets.recalculated)
}

func TestHandleTransactionEvent_NoCategory(t *testing.T) {
	budgets := &fakeBudgets{}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	w := newWorker(budgets, &fakePublisher{}, &now)

	require.NoError(t, w.HandleTransactionEvent(context.Background(), &amqp.TransactionEvent{TransactionID: "tx-1", Action: amqp.ActionDeleted}))
	assert.Empty(t, budgets.recalculated)
}

func TestScanAlerts_AnnouncesOncePerQuietPeriod(t *testing.T) {
	budgets := &fakeBudgets{alerts: []core.BudgetAlert{
		{Type: core.AlertOverrun, Priority: core.PriorityCritical, BudgetID: "b1", BudgetName: "Travel", Message: "Budget exceeded by ₹200"},
		{Type: core.AlertExpiring, Priority: core.PriorityMedium, BudgetID: "b1", BudgetName: "Travel", Message: "Budget expires in 4 days"},
	}}
	pub := &fakePublisher{}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	w := newWorker(budgets, pub, &now)

	sent, err := w.ScanAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, "overrun", pub.sent[0].Type)
	assert.Equal(t, "critical", pub.sent[0].Priority)
	assert.Equal(t, now, pub.sent[0].Timestamp)

	now = now.Add(time.Hour)
	sent, err = w.ScanAlerts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	now = now.Add(AlertQuietPeriod)
	sent, err = w.ScanAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, pub.sent, 4)
}

func TestScanAlerts_PriorityChangeIsNewAlert(t *testing.T) {
	budgets := &fakeBudgets{alerts: []core.BudgetAlert{
		{Type: core.AlertThreshold, Priority: core.PriorityMedium, BudgetID: "b1"},
	}}
	pub := &fakePublisher{}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	w := newWorker(budgets, pub, &now)

	_, err := w.ScanAlerts(context.Background())
	require.NoError(t, err)

	budgets.alerts[0].Priority = core.PriorityHigh
	sent, err := w.ScanAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestScanAlerts_PublishFailureRetriesNextScan(t *testing.T) {
	budgets := &fakeBudgets{alerts: []core.BudgetAlert{{Type: core.AlertOverrun, Priority: core.PriorityCritical, BudgetID: "b1"}}}
	pub := &fakePublisher{fail: true}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	w := newWorker(budgets, pub, &now)

	sent, err := w.ScanAlerts(context.Background())
	assert.ErrorContains(t, err, "publish alert b1/overrun/critical")
	assert.Zero(t, sent)

	pub.fail = false
	sent, err = w.ScanAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestScanAlerts_LoadFailure(t *testing.T) {
	budgets := &fakeBudgets{alertsErr: errors.New("no such table: budgets")}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	w := newWorker(budgets, &fakePublisher{}, &now)

	_, err := w.ScanAlerts(context.Background())
	assert.ErrorContains(t, err, "load budget alerts")
}

func TestRunAlertScanner_StopsOnCancel(t *testing.T) {
	budgets := &fakeBudgets{alerts: []core.BudgetAlert{{Type: core.AlertOverrun, Priority: core.PriorityCritical, BudgetID: "b1"}}}
	pub := &fakePublisher{}
	w := NewBudgetWorker(budgets, pub, applog.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunAlertScanner(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.sent) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}
}
