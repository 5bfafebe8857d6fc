package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
)

type stubTransactions struct {
	summaryErr error
}

func (s stubTransactions) GetFinancialSummary(context.Context, core.Period) (core.FinancialSummary, error) {
	return core.FinancialSummary{TotalIncome: decimal.NewFromInt(5000), TransactionCount: 1}, s.summaryErr
}

func (stubTransactions) GetExpenseBreakdown(context.Context, core.Period) ([]core.ExpenseCategory, error) {
	return nil, nil
}

func (stubTransactions) GetCashFlowData(context.Context, int) ([]core.CashFlowPoint, error) {
	return nil, nil
}

type stubBudgets struct{}

func (stubBudgets) GetBudgetPerformanceSummary(context.Context) (core.BudgetPerformanceSummary, error) {
	return core.BudgetPerformanceSummary{}, nil
}

func (stubBudgets) GetDepartmentBudgetBreakdown(context.Context) ([]core.DepartmentBudget, error) {
	return nil, nil
}

func (stubBudgets) GetBudgetAlerts(context.Context) ([]core.BudgetAlert, error) {
	return nil, nil
}

func commandWithOutput(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	return cmd
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "finctl dev\n", buf.String())
}

func TestRunMigrate(t *testing.T) {
	a := &app{
		cfg:    &config.Config{SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db")},
		logger: applog.Discard(),
	}

	var buf bytes.Buffer
	require.NoError(t, runMigrate(commandWithOutput(&buf), a, true))
	assert.Contains(t, buf.String(), "schema version: 0")

	buf.Reset()
	require.NoError(t, runMigrate(commandWithOutput(&buf), a, false))
	assert.Contains(t, buf.String(), "schema version: 1")
	assert.NotContains(t, buf.String(), "dirty")
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	err := writeSummary(&buf, core.CurrentQuarter, core.FinancialSummary{
		TotalIncome:      decimal.RequireFromString("123456.5"),
		TotalExpenses:    decimal.NewFromInt(1000),
		NetCashFlow:      decimal.RequireFromString("122456.5"),
		TransactionCount: 3,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "current_quarter")
	assert.Contains(t, out, "₹1,23,456.50")
	assert.Contains(t, out, "₹1,000.00")
	assert.Regexp(t, `Transactions\s+3`, out)
}

func TestWriteAlerts(t *testing.T) {
	alerts := []core.BudgetAlert{{
		Type:       core.AlertOverrun,
		Priority:   core.PriorityCritical,
		BudgetID:   "b-1",
		BudgetName: "Marketing",
		Message:    "Budget exceeded",
	}}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeAlerts(&buf, alerts, false))
		assert.Contains(t, buf.String(), "PRIORITY")
		assert.Contains(t, buf.String(), "Marketing")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeAlerts(&buf, alerts, true))
		var got []core.BudgetAlert
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, alerts, got)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeAlerts(&buf, nil, false))
		assert.Equal(t, "no active budget alerts\n", buf.String())

		buf.Reset()
		require.NoError(t, writeAlerts(&buf, nil, true))
		assert.JSONEq(t, "[]", buf.String())
	})
}

func TestExportReport(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	exporter := export.NewMemoryExporter()
	var buf bytes.Buffer

	location, err := exportReport(commandWithOutput(&buf), stubTransactions{}, stubBudgets{}, exporter, core.CurrentYear, at)
	require.NoError(t, err)
	assert.Equal(t, "mem:1", location)

	report, ok := exporter.Last()
	require.True(t, ok)
	assert.Equal(t, core.CurrentYear, report.Period)
	assert.Equal(t, at, report.GeneratedAt)
	assert.Equal(t, 1, report.Summary.TransactionCount)

	_, err = exportReport(commandWithOutput(&buf), stubTransactions{summaryErr: errors.New("db down")}, stubBudgets{}, exporter, core.CurrentYear, at)
	assert.ErrorContains(t, err, "db down")
}
