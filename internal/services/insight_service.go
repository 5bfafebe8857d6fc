package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/ai"
	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	InsightHistoryLimit = 10

	queryContextTransactions   = 100
	queryPromptTransactions    = 20
	overviewTransactions       = 50
	invoiceAnalysisHeader      = "Invoice Analysis Results:\n\n"
	analyzedInvoiceQueryPrefix = "Analyzed invoice: "
)

// InsightContext is the data a query is answered against.
type InsightContext struct {
	FinancialSummary   core.FinancialSummary `json:"financial_summary"`
	RecentTransactions []core.Transaction    `json:"recent_transactions"`
}

// Overview is the AI insights dashboard payload. A failed forecast is
// reported in Errors; anomalies and tax tips never fail.
type Overview struct {
	Summary   core.FinancialSummary `json:"summary"`
	Budgets   []core.BudgetView     `json:"budgets"`
	Forecast  *ai.Forecast          `json:"forecast"`
	Anomalies []ai.Anomaly          `json:"anomalies"`
	TaxTips   []ai.TaxTip           `json:"tax_tips"`
	Errors    map[string]string     `json:"errors,omitempty"`
}

// InsightService answers financial questions with the Advisor and keeps the
// per-user insight history.
type InsightService struct {
	transactions *TransactionService
	budgets      *BudgetService
	advisor      Advisor
	insights     InsightRepository
	logger       *applog.Logger
	now          func() time.Time
}

func NewInsightService(transactions *TransactionService, budgets *BudgetService, advisor Advisor, insights InsightRepository, logger *applog.Logger) *InsightService {
	return &InsightService{
		transactions: transactions,
		budgets:      budgets,
		advisor:      advisor,
		insights:     insights,
		logger:       logger.WithComponent(applog.ComponentInsights),
		now:          time.Now,
	}
}

// WithClock replaces time.Now.
func (s *InsightService) WithClock(now func() time.Time) *InsightService {
	s.now = now
	return s
}

// Ask answers query against the current quarter's summary and the most
// recent transactions, and records the exchange for userID.
func (s *InsightService) Ask(ctx context.Context, userID, query string) (core.Insight, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return core.Insight{}, core.ErrEmptyQuery
	}

	var (
		summary core.FinancialSummary
		recent  []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.transactions.GetFinancialSummary(gctx, core.CurrentQuarter)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.transactions.GetRecentTransactions(gctx, queryContextTransactions)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Insight{}, fmt.Errorf("load insight context: %w", err)
	}

	if len(recent) > queryPromptTransactions {
		recent = recent[:queryPromptTransactions]
	}
	answer, err := s.advisor.GenerateFinancialInsights(ctx, query, InsightContext{
		FinancialSummary:   summary,
		RecentTransactions: recent,
	})
	if err != nil {
		return core.Insight{}, err
	}

	return s.record(ctx, core.Insight{
		UserID:   userID,
		Kind:     core.InsightQuery,
		Query:    query,
		Response: answer,
	}), nil
}

// AnalyzeInvoice extracts invoice fields from an uploaded image and records
// the analysis as a file insight.
func (s *InsightService) AnalyzeInvoice(ctx context.Context, userID, filename string, image ai.InlineData) (ai.InvoiceExtraction, core.Insight, error) {
	res, err := s.advisor.AnalyzeInvoiceImage(ctx, image)
	if err != nil {
		return ai.InvoiceExtraction{}, core.Insight{}, err
	}
	extraction := res.Value(ai.InvoiceFallback)

	body, err := json.MarshalIndent(extraction, "", "  ")
	if err != nil {
		return ai.InvoiceExtraction{}, core.Insight{}, fmt.Errorf("encode invoice analysis: %w", err)
	}
	insight := s.record(ctx, core.Insight{
		UserID:   userID,
		Kind:     core.InsightFileAnalysis,
		Query:    analyzedInvoiceQueryPrefix + filename,
		Response: invoiceAnalysisHeader + string(body),
	})
	return extraction, insight, nil
}

// record stamps and stores an insight. A storage failure is logged and the
// insight is still returned to the caller.
func (s *InsightService) record(ctx context.Context, in core.Insight) core.Insight {
	in.ID = uuid.NewString()
	in.CreatedAt = s.now().UTC()
	if err := s.insights.SaveInsight(ctx, in); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save insight",
			applog.FieldUserID, in.UserID,
			applog.FieldOperation, applog.OpCreate,
			applog.FieldError, err)
	}
	return in
}

// History returns the user's most recent insights, newest first.
func (s *InsightService) History(ctx context.Context, userID string) ([]core.Insight, error) {
	insights, err := s.insights.ListInsights(ctx, userID, InsightHistoryLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list insights", applog.FieldUserID, userID, applog.FieldError, err)
		return nil, fmt.Errorf("list insights: %w", err)
	}
	return insights, nil
}

// Overview loads the quarter's summary, recent transactions and active
// budgets, then runs the forecast, anomaly and tax prompts concurrently.
func (s *InsightService) Overview(ctx context.Context) (Overview, error) {
	var (
		out    Overview
		recent []core.Transaction
	)
	load, lctx := errgroup.WithContext(ctx)
	load.Go(func() error {
		var err error
		out.Summary, err = s.transactions.GetFinancialSummary(lctx, core.CurrentQuarter)
		return err
	})
	load.Go(func() error {
		var err error
		recent, err = s.transactions.GetRecentTransactions(lctx, overviewTransactions)
		return err
	})
	load.Go(func() error {
		var err error
		out.Budgets, err = s.budgets.GetBudgets(lctx, core.BudgetFilter{Status: core.BudgetActive})
		return err
	})
	if err := load.Wait(); err != nil {
		return Overview{}, fmt.Errorf("load AI overview data: %w", err)
	}

	var (
		g           errgroup.Group
		forecastErr error
	)
	g.Go(func() error {
		res, err := s.advisor.GenerateFinancialForecast(ctx, recent, ai.DefaultForecastPeriod)
		if err != nil {
			forecastErr = err
			return nil
		}
		f := res.Value(ai.ForecastFallback(ai.DefaultForecastPeriod))
		out.Forecast = &f
		return nil
	})
	g.Go(func() error {
		out.Anomalies = s.advisor.DetectFinancialAnomalies(ctx, recent)
		return nil
	})
	g.Go(func() error {
		out.TaxTips = s.advisor.GetTaxOptimizationTips(ctx, out.Summary)
		return nil
	})
	_ = g.Wait()

	if forecastErr != nil {
		msg, ok := core.UserMessage(forecastErr)
		if !ok {
			msg = forecastErr.Error()
		}
		out.Errors = map[string]string{"forecast": msg}
	}
	if out.Anomalies == nil {
		out.Anomalies = []ai.Anomaly{}
	}
	if out.TaxTips == nil {
		out.TaxTips = []ai.TaxTip{}
	}
	return out, nil
}

// TaxTips returns tax optimisation tips for the period's summary. The
// advisor never fails; an empty list means no tips could be produced.
func (s *InsightService) TaxTips(ctx context.Context, period core.Period) ([]ai.TaxTip, error) {
	summary, err := s.transactions.GetFinancialSummary(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load tax summary: %w", err)
	}
	tips := s.advisor.GetTaxOptimizationTips(ctx, summary)
	if tips == nil {
		tips = []ai.TaxTip{}
	}
	return tips, nil
}
