package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetService serves budgets with their derived figures and evaluates alerts.
type BudgetService struct {
	repo   BudgetRepository
	txs    TransactionRepository
	logger *applog.Logger
	now    func() time.Time
}

func NewBudgetService(repo BudgetRepository, txs TransactionRepository, logger *applog.Logger) *BudgetService {
	return &BudgetService{
		repo:   repo,
		txs:    txs,
		logger: logger.WithComponent(applog.ComponentBudgets),
		now:    time.Now,
	}
}

// WithClock replaces time.Now; intended for tests and batch jobs.
func (s *BudgetService) WithClock(now func() time.Time) *BudgetService {
	s.now = now
	return s
}

func (s *BudgetService) fail(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "Budget operation failed", applog.FieldOperation, op, applog.FieldError, err)
	return err
}

// GetBudgets returns the budgets matching f with utilisation, remaining amount
// and days remaining computed as of now.
func (s *BudgetService) GetBudgets(ctx context.Context, f core.BudgetFilter) ([]core.BudgetView, error) {
	if !f.Period.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, f.Period)
	}
	now := s.now()
	if f.Period != "" && f.AsOf.IsZero() {
		f.AsOf = core.DateOf(now)
	}

	budgets, err := s.repo.ListBudgets(ctx, f)
	if err != nil {
		return nil, s.fail(ctx, applog.OpList, fmt.Errorf("fetch budgets: %w", err))
	}

	views := make([]core.BudgetView, len(budgets))
	for i, b := range budgets {
		views[i] = core.NewBudgetView(b, now)
	}
	return views, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, id string) (core.BudgetView, error) {
	b, err := s.repo.GetBudget(ctx, id)
	if err != nil {
		return core.BudgetView{}, s.fail(ctx, applog.OpRead, fmt.Errorf("fetch budget: %w", err))
	}
	return core.NewBudgetView(b, s.now()), nil
}

func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget) (core.BudgetView, error) {
	if b.Status == "" {
		b.Status = core.BudgetActive
	}
	if b.AlertThreshold == 0 {
		b.AlertThreshold = core.DefaultAlertThreshold
	}
	if err := b.Validate(); err != nil {
		return core.BudgetView{}, err
	}
	b.ID = uuid.NewString()

	created, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.BudgetView{}, s.fail(ctx, applog.OpCreate, fmt.Errorf("create budget: %w", err))
	}
	s.logger.InfoContext(ctx, "Budget created", applog.FieldBudgetID, created.ID, "name", created.Name)
	return core.NewBudgetView(created, s.now()), nil
}

func (s *BudgetService) UpdateBudget(ctx context.Context, id string, u core.BudgetUpdate) (core.BudgetView, error) {
	current, err := s.repo.GetBudget(ctx, id)
	if err != nil {
		return core.BudgetView{}, s.fail(ctx, applog.OpUpdate, fmt.Errorf("fetch budget: %w", err))
	}
	next := u.Apply(current)
	if err := next.Validate(); err != nil {
		return core.BudgetView{}, err
	}
	updated, err := s.repo.UpdateBudget(ctx, next)
	if err != nil {
		return core.BudgetView{}, s.fail(ctx, applog.OpUpdate, fmt.Errorf("update budget: %w", err))
	}
	return core.NewBudgetView(updated, s.now()), nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, id string) error {
	if err := s.repo.DeleteBudget(ctx, id); err != nil {
		return s.fail(ctx, applog.OpDelete, fmt.Errorf("delete budget: %w", err))
	}
	return nil
}

func (s *BudgetService) activeBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, core.BudgetFilter{Status: core.BudgetActive})
}

// GetBudgetPerformanceSummary aggregates the active budgets.
func (s *BudgetService) GetBudgetPerformanceSummary(ctx context.Context) (core.BudgetPerformanceSummary, error) {
	budgets, err := s.activeBudgets(ctx)
	if err != nil {
		return core.BudgetPerformanceSummary{}, s.fail(ctx, applog.OpAggregate, fmt.Errorf("budget performance summary: %w", err))
	}
	return core.SummarizeBudgets(budgets), nil
}

// GetDepartmentBudgetBreakdown groups the active budgets by department.
func (s *BudgetService) GetDepartmentBudgetBreakdown(ctx context.Context) ([]core.DepartmentBudget, error) {
	budgets, err := s.activeBudgets(ctx)
	if err != nil {
		return nil, s.fail(ctx, applog.OpAggregate, fmt.Errorf("department budget breakdown: %w", err))
	}
	return core.DepartmentBreakdown(budgets), nil
}

// GetBudgetAlerts evaluates the active budgets, most urgent first.
func (s *BudgetService) GetBudgetAlerts(ctx context.Context) ([]core.BudgetAlert, error) {
	budgets, err := s.activeBudgets(ctx)
	if err != nil {
		return nil, s.fail(ctx, applog.OpAggregate, fmt.Errorf("budget alerts: %w", err))
	}
	return core.BudgetAlerts(budgets, s.now()), nil
}

// GetBudgetTrends groups completed budgets of the last months months by start
// month; months <= 0 means 6.
func (s *BudgetService) GetBudgetTrends(ctx context.Context, months int) ([]core.BudgetTrend, error) {
	if months <= 0 {
		months = DefaultCashFlowMonths
	}
	budgets, err := s.repo.ListBudgets(ctx, core.BudgetFilter{})
	if err != nil {
		return nil, s.fail(ctx, applog.OpAggregate, fmt.Errorf("budget trends: %w", err))
	}
	return core.BudgetTrends(budgets, months, s.now()), nil
}

// RecalculateSpend sets the spent amount of every active budget bound to the
// category to the sum of that category's expenses within the budget period.
// It returns the number of budgets whose spent amount changed.
func (s *BudgetService) RecalculateSpend(ctx context.Context, categoryID string) (int, error) {
	if categoryID == "" {
		return 0, nil
	}
	budgets, err := s.activeBudgets(ctx)
	if err != nil {
		return 0, s.fail(ctx, "recalculate_spend", fmt.Errorf("fetch budgets: %w", err))
	}

	changed := 0
	for _, b := range budgets {
		if b.CategoryID != categoryID {
			continue
		}
		start, end := b.PeriodStart, b.PeriodEnd
		expenses, err := s.txs.ListTransactions(ctx, core.TransactionFilter{
			StartDate:  &start,
			EndDate:    &end,
			Type:       core.Expense,
			CategoryID: categoryID,
		})
		if err != nil {
			return changed, s.fail(ctx, "recalculate_spend", fmt.Errorf("fetch expenses for budget %s: %w", b.ID, err))
		}

		spent := decimal.Zero
		for _, tx := range expenses {
			spent = spent.Add(tx.Amount)
		}
		if spent.Equal(b.SpentAmount) {
			continue
		}
		if err := s.repo.SetBudgetSpent(ctx, b.ID, spent); err != nil {
			return changed, s.fail(ctx, "recalculate_spend", fmt.Errorf("update budget %s: %w", b.ID, err))
		}
		changed++
		s.logger.InfoContext(ctx, "Budget spend recalculated",
			applog.FieldBudgetID, b.ID,
			applog.FieldCategoryID, categoryID,
			"previous", b.SpentAmount.String(),
			"spent", spent.String())
	}
	return changed, nil
}
