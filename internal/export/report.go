// Package export publishes snapshots of the executive dashboard.
package export

import (
	"context"
	"fmt"
	"math"
	"time"

	"fintrack/internal/core"

	"golang.org/x/sync/errgroup"
)

// ReportCashFlowMonths is the cash-flow history carried by a report.
const ReportCashFlowMonths = 6

type (
	TransactionSource interface {
		GetFinancialSummary(ctx context.Context, period core.Period) (core.FinancialSummary, error)
		GetExpenseBreakdown(ctx context.Context, period core.Period) ([]core.ExpenseCategory, error)
		GetCashFlowData(ctx context.Context, months int) ([]core.CashFlowPoint, error)
	}

	BudgetSource interface {
		GetBudgetPerformanceSummary(ctx context.Context) (core.BudgetPerformanceSummary, error)
		GetDepartmentBudgetBreakdown(ctx context.Context) ([]core.DepartmentBudget, error)
		GetBudgetAlerts(ctx context.Context) ([]core.BudgetAlert, error)
	}
)

// Report is a point-in-time copy of the executive dashboard.
type Report struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Period      core.Period                   `json:"period"`
	Summary     core.FinancialSummary         `json:"summary"`
	Budgets     core.BudgetPerformanceSummary `json:"budgets"`
	Departments []core.DepartmentBudget       `json:"departments"`
	Breakdown   []core.ExpenseCategory        `json:"breakdown"`
	CashFlow    []core.CashFlowPoint          `json:"cash_flow"`
	Alerts      []core.BudgetAlert            `json:"alerts"`
}

// BuildReport loads every report section concurrently. Unlike the live
// dashboard a report is all or nothing.
func BuildReport(ctx context.Context, txs TransactionSource, budgets BudgetSource, period core.Period, at time.Time) (Report, error) {
	r := Report{GeneratedAt: at, Period: period}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.Summary, err = txs.GetFinancialSummary(gctx, period)
		return section("summary", err)
	})
	g.Go(func() (err error) {
		r.Breakdown, err = txs.GetExpenseBreakdown(gctx, period)
		return section("expense breakdown", err)
	})
	g.Go(func() (err error) {
		r.CashFlow, err = txs.GetCashFlowData(gctx, ReportCashFlowMonths)
		return section("cash flow", err)
	})
	g.Go(func() (err error) {
		r.Budgets, err = budgets.GetBudgetPerformanceSummary(gctx)
		return section("budget performance", err)
	})
	g.Go(func() (err error) {
		r.Departments, err = budgets.GetDepartmentBudgetBreakdown(gctx)
		return section("departments", err)
	})
	g.Go(func() (err error) {
		r.Alerts, err = budgets.GetBudgetAlerts(gctx)
		return section("alerts", err)
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return r, nil
}

func section(name string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// Rows flattens the report into spreadsheet rows. Amounts stay numeric so
// the sheet can chart them.
func Rows(r Report) [][]any {
	rows := [][]any{
		{"Financial Report", string(r.Period), core.FormatDate(r.GeneratedAt)},
		{},
		{"Summary"},
		{"Total income", r.Summary.TotalIncome.InexactFloat64()},
		{"Total expenses", r.Summary.TotalExpenses.InexactFloat64()},
		{"Net cash flow", r.Summary.NetCashFlow.InexactFloat64()},
		{"GST", r.Summary.TotalGST.InexactFloat64()},
		{"TDS", r.Summary.TotalTDS.InexactFloat64()},
		{"Transactions", r.Summary.TransactionCount},
		{},
		{"Budgets"},
		{"Allocated", r.Budgets.TotalAllocated.InexactFloat64()},
		{"Spent", r.Budgets.TotalSpent.InexactFloat64()},
		{"Remaining", r.Budgets.TotalRemaining.InexactFloat64()},
		{"Average utilization %", round1(r.Budgets.AverageUtilization)},
		{"On track / At risk / Overrun", r.Budgets.OnTrackCount, r.Budgets.AtRiskCount, r.Budgets.OverrunCount},
		{},
		{"Department", "Allocated", "Spent", "Utilization %", "Remaining"},
	}
	for _, d := range r.Departments {
		rows = append(rows, []any{d.Department, d.Allocated.InexactFloat64(), d.Spent.InexactFloat64(), round1(d.Utilization), d.Remaining.InexactFloat64()})
	}

	rows = append(rows, []any{}, []any{"Expense category", "Amount"})
	for _, c := range r.Breakdown {
		rows = append(rows, []any{c.Name, c.Amount.InexactFloat64()})
	}

	rows = append(rows, []any{}, []any{"Month", "Income", "Expense", "Net"})
	for _, p := range r.CashFlow {
		rows = append(rows, []any{p.Month, p.Income.InexactFloat64(), p.Expense.InexactFloat64(), p.Income.Sub(p.Expense).InexactFloat64()})
	}

	rows = append(rows, []any{}, []any{"Priority", "Alert", "Budget", "Message"})
	for _, a := range r.Alerts {
		rows = append(rows, []any{string(a.Priority), string(a.Type), a.BudgetName, a.Message})
	}
	return rows
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
