package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	FinancialSummary struct {
		TotalIncome      decimal.Decimal `json:"total_income"`
		TotalExpenses    decimal.Decimal `json:"total_expenses"`
		TotalGST         decimal.Decimal `json:"total_gst"`
		TotalTDS         decimal.Decimal `json:"total_tds"`
		NetCashFlow      decimal.Decimal `json:"net_cash_flow"`
		TransactionCount int             `json:"transaction_count"`
	}

	ExpenseCategory struct {
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
		Color  string          `json:"color"`
	}

	CashFlowPoint struct {
		Month   string          `json:"month"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
	}
)

// Summarize totals income, expenses and taxes. GST and TDS are summed over every
// transaction regardless of type.
func Summarize(txs []Transaction) FinancialSummary {
	s := FinancialSummary{TransactionCount: len(txs)}
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case Expense:
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
		}
		s.TotalGST = s.TotalGST.Add(tx.GSTAmount)
		s.TotalTDS = s.TotalTDS.Add(tx.TDSAmount)
	}
	s.NetCashFlow = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// BreakdownExpenses groups expense amounts by category name in first-seen order.
// The first transaction of a category decides the bucket colour.
func BreakdownExpenses(txs []Transaction) []ExpenseCategory {
	index := make(map[string]int)
	var out []ExpenseCategory
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		name, color := UncategorizedName, UncategorizedColor
		if tx.Category != nil {
			if tx.Category.Name != "" {
				name = tx.Category.Name
			}
			if tx.Category.ColorCode != "" {
				color = tx.Category.ColorCode
			}
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, ExpenseCategory{Name: name, Color: color})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	if out == nil {
		out = []ExpenseCategory{}
	}
	return out
}

// CashFlowSeries buckets income and expense by month over the last months months
// ending with the month of now. Every month in the window appears exactly once,
// zero-filled, in ascending order.
func CashFlowSeries(txs []Transaction, months int, now time.Time) []CashFlowPoint {
	w := MonthsWindow(months, now)
	keys := w.MonthKeys()
	points := make(map[string]*CashFlowPoint, len(keys))
	out := make([]CashFlowPoint, len(keys))
	for i, k := range keys {
		out[i] = CashFlowPoint{Month: k}
		points[k] = &out[i]
	}
	for _, tx := range txs {
		p, ok := points[tx.TransactionDate.MonthKey()]
		if !ok {
			continue
		}
		switch tx.Type {
		case Income:
			p.Income = p.Income.Add(tx.Amount)
		case Expense:
			p.Expense = p.Expense.Add(tx.Amount)
		}
	}
	return out
}
