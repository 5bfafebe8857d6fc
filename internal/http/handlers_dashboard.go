package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	dashboardCashFlowMonths = 6
	dashboardTopAlerts      = 5
	defaultExportAccount    = "all"
)

// ExecutiveDashboard is the executive dashboard payload. A section that
// failed to load is left empty and its error is reported under its name.
type ExecutiveDashboard struct {
	Period            core.Period                   `json:"period"`
	Summary           core.FinancialSummary         `json:"summary"`
	BudgetPerformance core.BudgetPerformanceSummary `json:"budget_performance"`
	CashFlow          []core.CashFlowPoint          `json:"cash_flow"`
	ExpenseBreakdown  []core.ExpenseCategory        `json:"expense_breakdown"`
	Alerts            []core.BudgetAlert            `json:"alerts"`
	Errors            map[string]string             `json:"errors,omitempty"`
}

// sections runs independent loaders concurrently. A failing loader never
// cancels its siblings.
type sections struct {
	g    errgroup.Group
	mu   sync.Mutex
	errs map[string]error
}

func (ss *sections) load(ctx context.Context, name string, fn func(context.Context) error) {
	ss.g.Go(func() error {
		if err := fn(ctx); err != nil {
			ss.mu.Lock()
			if ss.errs == nil {
				ss.errs = make(map[string]error)
			}
			ss.errs[name] = err
			ss.mu.Unlock()
		}
		return nil
	})
}

func (ss *sections) wait() map[string]error {
	_ = ss.g.Wait()
	return ss.errs
}

func (s *Server) handleExecutiveDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d := ExecutiveDashboard{Period: core.ParsePeriod(r.URL.Query().Get("period"))}

	var ss sections
	ss.load(ctx, "summary", func(ctx context.Context) (err error) {
		d.Summary, err = s.svc.Transactions.GetFinancialSummary(ctx, d.Period)
		return err
	})
	ss.load(ctx, "budget_performance", func(ctx context.Context) (err error) {
		d.BudgetPerformance, err = s.svc.Budgets.GetBudgetPerformanceSummary(ctx)
		return err
	})
	ss.load(ctx, "cash_flow", func(ctx context.Context) (err error) {
		d.CashFlow, err = s.svc.Transactions.GetCashFlowData(ctx, dashboardCashFlowMonths)
		return err
	})
	ss.load(ctx, "expense_breakdown", func(ctx context.Context) (err error) {
		d.ExpenseBreakdown, err = s.svc.Transactions.GetExpenseBreakdown(ctx, d.Period)
		return err
	})
	ss.load(ctx, "alerts", func(ctx context.Context) error {
		alerts, err := s.svc.Budgets.GetBudgetAlerts(ctx)
		if len(alerts) > dashboardTopAlerts {
			alerts = alerts[:dashboardTopAlerts]
		}
		d.Alerts = alerts
		return err
	})
	for name, err := range ss.wait() {
		s.logger.WarnContext(ctx, "Dashboard section failed", "section", name, applog.FieldError, err)
		if d.Errors == nil {
			d.Errors = make(map[string]string)
		}
		_, d.Errors[name] = classify(err)
	}

	d.CashFlow = nonNil(d.CashFlow)
	d.ExpenseBreakdown = nonNil(d.ExpenseBreakdown)
	d.Alerts = nonNil(d.Alerts)
	NewResponse().Data(d).Write(w)
}

type (
	cashFlowMetrics struct {
		Summary  core.FinancialSummary `json:"summary"`
		CashFlow []core.CashFlowPoint  `json:"cash_flow"`
	}

	cashFlowExport struct {
		Account    string          `json:"account"`
		TimeRange  core.Period     `json:"time_range"`
		Months     int             `json:"months"`
		Metrics    cashFlowMetrics `json:"metrics"`
		ExportedAt time.Time       `json:"exported_at"`
	}
)

// handleCashFlowExport downloads the cash-flow dashboard as a JSON file.
func (s *Server) handleCashFlowExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	account := sanitizeInput(strings.TrimSpace(q.Get("account")))
	if account == "" {
		account = defaultExportAccount
	}
	out := cashFlowExport{
		Account:   account,
		TimeRange: core.ParsePeriod(q.Get("period")),
		Months:    ParseIntParam(q, "months", services.DefaultCashFlowMonths, 1, maxHistoryMonths),
	}

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		out.Metrics.Summary, err = s.svc.Transactions.GetFinancialSummary(gctx, out.TimeRange)
		return err
	})
	g.Go(func() (err error) {
		out.Metrics.CashFlow, err = s.svc.Transactions.GetCashFlowData(gctx, out.Months)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, "cash_flow_export", err)
		return
	}

	out.ExportedAt = s.now().UTC()
	out.Metrics.CashFlow = nonNil(out.Metrics.CashFlow)
	NewResponse().
		Data(out).
		Attachment(fmt.Sprintf("cash-flow-report-%s.json", out.ExportedAt.Format(time.DateOnly))).
		Write(w)
}

type reportExportResponse struct {
	Location    string      `json:"location"`
	Period      core.Period `json:"period"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// handleReportExport snapshots the executive dashboard into the configured
// exporter.
func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	if s.svc.Exporter == nil {
		s.fail(w, r, "report_export", fmt.Errorf("%w: report export is not configured", errUnavailable))
		return
	}

	period := core.ParsePeriod(r.URL.Query().Get("period"))
	report, err := export.BuildReport(r.Context(), s.svc.Transactions, s.svc.Budgets, period, s.now())
	if err != nil {
		s.fail(w, r, "report_export", err)
		return
	}
	location, err := s.svc.Exporter.Export(r.Context(), report)
	if err != nil {
		s.fail(w, r, "report_export", err)
		return
	}

	NewResponse().
		Data(reportExportResponse{Location: location, Period: period, GeneratedAt: report.GeneratedAt}).
		TriggerSuccessNotification("Report exported").
		Write(w)
}
