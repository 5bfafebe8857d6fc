package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const budgetColumns = `
	b.id, b.name, b.department, b.category_id, b.allocated_amount, b.spent_amount,
	b.period_start, b.period_end, b.alert_threshold, b.status, b.created_by, b.created_at,
	c.name, c.color_code`

const budgetFrom = `
	FROM budgets b
	LEFT JOIN transaction_categories c ON c.id = b.category_id`

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                          core.Budget
		categoryID                 sql.NullString
		allocated, spent           string
		start, end, status, create string
		catName, catColor          sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.Department, &categoryID, &allocated, &spent,
		&start, &end, &b.AlertThreshold, &status, &b.CreatedBy, &create,
		&catName, &catColor,
	)
	if err != nil {
		return b, err
	}
	b.CategoryID = categoryID.String
	b.AllocatedAmount = core.ParseAmount(allocated)
	b.SpentAmount = core.ParseAmount(spent)
	b.PeriodStart = parseDay(start)
	b.PeriodEnd = parseDay(end)
	b.Status = core.BudgetStatus(status)
	b.CreatedAt = parseTimestamp(create)
	if categoryID.Valid && catName.Valid {
		b.Category = &core.CategoryRef{ID: categoryID.String, Name: catName.String, ColorCode: catColor.String}
	}
	return b, nil
}

// ListBudgets returns the budgets matching f, most recently created first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, f core.BudgetFilter) ([]core.Budget, error) {
	var w where
	if f.Department != "" {
		w.add("b.department = ?", f.Department)
	}
	if f.Status != "" {
		w.add("b.status = ?", string(f.Status))
	}
	if !f.AsOf.IsZero() {
		today := f.AsOf.String()
		switch f.Period {
		case core.PeriodCurrentBudgets:
			w.add("b.period_start <= ? AND b.period_end >= ?", today, today)
		case core.PeriodUpcomingBudgets:
			w.add("b.period_start > ?", today)
		case core.PeriodPastBudgets:
			w.add("b.period_end < ?", today)
		}
	}

	rows, err := r.db.QueryContext(ctx, "SELECT"+budgetColumns+budgetFrom+w.String()+" ORDER BY b.created_at DESC", w.args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, "SELECT"+budgetColumns+budgetFrom+" WHERE b.id = ?", id))
	if err != nil {
		return core.Budget{}, notFound(err, "budget", id)
	}
	return b, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (
			id, name, department, category_id, allocated_amount, spent_amount,
			period_start, period_end, alert_threshold, status, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Department, nullable(b.CategoryID), b.AllocatedAmount.String(), b.SpentAmount.String(),
		b.PeriodStart.String(), b.PeriodEnd.String(), b.AlertThreshold, string(b.Status), b.CreatedBy, r.timestamp(),
	)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	return r.GetBudget(ctx, b.ID)
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET
			name = ?, department = ?, category_id = ?, allocated_amount = ?, spent_amount = ?,
			period_start = ?, period_end = ?, alert_threshold = ?, status = ?
		WHERE id = ?`,
		b.Name, b.Department, nullable(b.CategoryID), b.AllocatedAmount.String(), b.SpentAmount.String(),
		b.PeriodStart.String(), b.PeriodEnd.String(), b.AlertThreshold, string(b.Status), b.ID,
	)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if err := requireAffected(res, "budget", b.ID); err != nil {
		return core.Budget{}, err
	}
	return r.GetBudget(ctx, b.ID)
}

// SetBudgetSpent records a recalculated spent amount.
func (r *SQLiteRepository) SetBudgetSpent(ctx context.Context, id string, spent decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, "UPDATE budgets SET spent_amount = ? WHERE id = ?", spent.String(), id)
	if err != nil {
		return fmt.Errorf("set budget spent: %w", err)
	}
	return requireAffected(res, "budget", id)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireAffected(res, "budget", id)
}
