package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const (
	// AlertQuietPeriod is how long an announced alert stays silent.
	AlertQuietPeriod   = 24 * time.Hour
	announcedCacheSize = 5000
)

// Budgets is the slice of the budget service the worker drives.
type Budgets interface {
	RecalculateSpend(ctx context.Context, categoryID string) (int, error)
	GetBudgetAlerts(ctx context.Context) ([]core.BudgetAlert, error)
}

type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// BudgetWorker keeps budget spend in step with transaction events and
// announces budget alerts once per quiet period.
type BudgetWorker struct {
	budgets   Budgets
	publisher AlertPublisher
	announced *cache.LRUCache[time.Time]
	logger    *applog.Logger
	now       func() time.Time
}

func NewBudgetWorker(budgets Budgets, publisher AlertPublisher, logger *applog.Logger) *BudgetWorker {
	return &BudgetWorker{
		budgets:   budgets,
		publisher: publisher,
		announced: cache.NewLRUCache[time.Time](announcedCacheSize, AlertQuietPeriod),
		logger:    logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// WithClock replaces time.Now for the worker and its dedupe cache.
func (w *BudgetWorker) WithClock(now func() time.Time) *BudgetWorker {
	w.now = now
	w.announced.WithClock(now)
	return w
}

// Announced exposes the dedupe cache for periodic cleanup.
func (w *BudgetWorker) Announced() cache.Cleaner {
	return w.announced
}

// HandleTransactionEvent recalculates the spend of every budget bound to
// the categories the event touched. A returned error requeues the message.
func (w *BudgetWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	ids := msg.CategoryIDs()
	w.logger.InfoContext(ctx, "Processing transaction event",
		applog.FieldTransactionID, msg.TransactionID,
		"action", msg.Action,
		"categories", len(ids))

	var errs []error
	for _, id := range ids {
		changed, err := w.budgets.RecalculateSpend(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("recalculate category %s: %w", id, err))
			continue
		}
		if changed > 0 {
			w.logger.InfoContext(ctx, "Budget spend updated", applog.FieldCategoryID, id, "budgets", changed)
		}
	}
	return errors.Join(errs...)
}

func alertKey(a core.BudgetAlert) string {
	return a.BudgetID + "/" + string(a.Type) + "/" + string(a.Priority)
}

// ScanAlerts publishes the alerts not announced within the quiet period and
// returns how many went out. An alert that fails to publish is retried on
// the next scan.
func (w *BudgetWorker) ScanAlerts(ctx context.Context) (int, error) {
	alerts, err := w.budgets.GetBudgetAlerts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load budget alerts: %w", err)
	}

	sent := 0
	var errs []error
	for _, a := range alerts {
		key := alertKey(a)
		if _, seen := w.announced.Get(key); seen {
			continue
		}
		msg := &amqp.BudgetAlertMessage{
			BudgetID:   a.BudgetID,
			BudgetName: a.BudgetName,
			Type:       string(a.Type),
			Priority:   string(a.Priority),
			Message:    a.Message,
			Timestamp:  w.now(),
		}
		if err := w.publisher.PublishBudgetAlert(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("publish alert %s: %w", key, err))
			continue
		}
		w.announced.Set(key, msg.Timestamp)
		sent++
	}

	if sent > 0 {
		w.logger.InfoContext(ctx, "Budget alerts announced", "sent", sent, "active", len(alerts))
	}
	return sent, errors.Join(errs...)
}

// RunAlertScanner scans on every tick until ctx is done.
func (w *BudgetWorker) RunAlertScanner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ScanAlerts(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Alert scan failed", applog.FieldError, err)
			}
		}
	}
}
