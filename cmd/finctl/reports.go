package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
)

const periodFlagUsage = "Reporting period: current_month, current_quarter or current_year"

func summaryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the financial summary for a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _ := cmd.Flags().GetString("period")
			period := core.ParsePeriod(p)

			result := a.backend(cmd.Context())
			defer closeBackend(a, result.Cleanup)

			summary, err := result.Backend.Transactions.GetFinancialSummary(cmd.Context(), period)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), period, summary)
		},
	}
	cmd.Flags().String("period", string(core.CurrentMonth), periodFlagUsage)
	return cmd
}

func alertsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List active budget alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			result := a.backend(cmd.Context())
			defer closeBackend(a, result.Cleanup)

			alerts, err := result.Backend.Budgets.GetBudgetAlerts(cmd.Context())
			if err != nil {
				return err
			}
			return writeAlerts(cmd.OutOrStdout(), alerts, asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "Print alerts as JSON")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the executive dashboard to the report spreadsheet",
		Long: `Build a dashboard report for the period and write it to the Google
spreadsheet named by GOOGLE_SPREADSHEET_ID.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _ := cmd.Flags().GetString("period")
			period := core.ParsePeriod(p)

			result := a.backend(cmd.Context())
			defer closeBackend(a, result.Cleanup)

			b := result.Backend
			if b.Exporter == nil {
				return errors.New("report export is not configured: set GOOGLE_SPREADSHEET_ID")
			}
			location, err := exportReport(cmd, b.Transactions, b.Budgets, b.Exporter, period, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report for %s written to %s\n", period, location)
			return nil
		},
	}
	cmd.Flags().String("period", string(core.CurrentMonth), periodFlagUsage)
	return cmd
}

func exportReport(cmd *cobra.Command, txs export.TransactionSource, budgets export.BudgetSource, exporter export.Exporter, period core.Period, at time.Time) (string, error) {
	report, err := export.BuildReport(cmd.Context(), txs, budgets, period, at)
	if err != nil {
		return "", err
	}
	return exporter.Export(cmd.Context(), report)
}

func closeBackend(a *app, cleanup func() error) {
	if err := cleanup(); err != nil {
		a.logger.Error("Cleanup failed", applog.FieldError, err)
	}
}

func writeSummary(w io.Writer, period core.Period, s core.FinancialSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Period\t%s\n", period)
	fmt.Fprintf(tw, "Income\t%s\n", core.FormatINR(s.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\n", core.FormatINR(s.TotalExpenses))
	fmt.Fprintf(tw, "Net cash flow\t%s\n", core.FormatINR(s.NetCashFlow))
	fmt.Fprintf(tw, "GST\t%s\n", core.FormatINR(s.TotalGST))
	fmt.Fprintf(tw, "TDS\t%s\n", core.FormatINR(s.TotalTDS))
	fmt.Fprintf(tw, "Transactions\t%d\n", s.TransactionCount)
	return tw.Flush()
}

func writeAlerts(w io.Writer, alerts []core.BudgetAlert, asJSON bool) error {
	if asJSON {
		if alerts == nil {
			alerts = []core.BudgetAlert{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(alerts)
	}

	if len(alerts) == 0 {
		_, err := fmt.Fprintln(w, "no active budget alerts")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tTYPE\tBUDGET\tMESSAGE")
	for _, a := range alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Priority, a.Type, a.BudgetName, a.Message)
	}
	return tw.Flush()
}
