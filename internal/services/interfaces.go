package services

import (
	"context"
	"io"

	"fintrack/internal/ai"
	"fintrack/internal/amqp"
	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// The services depend on these interfaces, not on the SQLite repository.
//
//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks -source=interfaces.go

type TransactionRepository interface {
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

type BudgetRepository interface {
	ListBudgets(ctx context.Context, f core.BudgetFilter) ([]core.Budget, error)
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	SetBudgetSpent(ctx context.Context, id string, spent decimal.Decimal) error
	DeleteBudget(ctx context.Context, id string) error
}

type InsightRepository interface {
	SaveInsight(ctx context.Context, in core.Insight) error
	ListInsights(ctx context.Context, userID string, limit int) ([]core.Insight, error)
}

// EventPublisher announces transaction mutations to asynchronous consumers.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, msg *amqp.TransactionEvent) error
}

// BlobStore stores invoice documents and returns their public URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Advisor runs the generative-model prompts.
type Advisor interface {
	GenerateFinancialInsights(ctx context.Context, query string, data any) (string, error)
	AnalyzeInvoiceImage(ctx context.Context, image ai.InlineData) (ai.Result[ai.InvoiceExtraction], error)
	GenerateFinancialForecast(ctx context.Context, history any, period string) (ai.Result[ai.Forecast], error)
	DetectFinancialAnomalies(ctx context.Context, transactions any) []ai.Anomaly
	GetTaxOptimizationTips(ctx context.Context, summary any) []ai.TaxTip
}
