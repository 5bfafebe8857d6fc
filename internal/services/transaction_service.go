package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/google/uuid"
)

const (
	DefaultRecentLimit    = 10
	DefaultCashFlowMonths = 6
)

// TransactionService reads and writes transactions and derives the dashboard
// aggregates from them.
type TransactionService struct {
	repo      TransactionRepository
	publisher EventPublisher
	blobs     BlobStore
	logger    *applog.Logger
	now       func() time.Time
}

// TransactionOption customises a TransactionService.
type TransactionOption func(*TransactionService)

// WithPublisher announces mutations on p. Without one, events are skipped.
func WithPublisher(p EventPublisher) TransactionOption {
	return func(s *TransactionService) { s.publisher = p }
}

// WithBlobStore enables invoice uploads.
func WithBlobStore(b BlobStore) TransactionOption {
	return func(s *TransactionService) { s.blobs = b }
}

// WithTransactionClock replaces time.Now.
func WithTransactionClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) { s.now = now }
}

func NewTransactionService(repo TransactionRepository, logger *applog.Logger, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{
		repo:   repo,
		logger: logger.WithComponent(applog.ComponentTransactions),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransactionService) fail(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "Transaction operation failed", applog.FieldOperation, op, applog.FieldError, err)
	return err
}

// GetTransactions returns the transactions matching f, newest first.
func (s *TransactionService) GetTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx, f)
	if err != nil {
		return nil, s.fail(ctx, applog.OpList, fmt.Errorf("fetch transactions: %w", err))
	}
	return txs, nil
}

// GetRecentTransactions returns the last limit recorded transactions; limit <= 0 means 10.
func (s *TransactionService) GetRecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	txs, err := s.repo.RecentTransactions(ctx, limit)
	if err != nil {
		return nil, s.fail(ctx, applog.OpList, fmt.Errorf("fetch recent transactions: %w", err))
	}
	return txs, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, s.fail(ctx, applog.OpRead, fmt.Errorf("fetch transaction: %w", err))
	}
	return tx, nil
}

// CreateTransaction validates and stores tx, then announces it. A failed
// announcement is logged and does not fail the call.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = uuid.NewString()

	created, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, s.fail(ctx, applog.OpCreate, fmt.Errorf("create transaction: %w", err))
	}

	s.logger.InfoContext(ctx, "Transaction created",
		applog.FieldTransactionID, created.ID,
		applog.FieldTransactionType, created.Type,
		applog.FieldAmount, created.Amount.String())

	s.announce(ctx, amqp.NewTransactionEvent(created.ID, amqp.ActionCreated, string(created.Type), created.CategoryID))
	return created, nil
}

// UpdateTransaction applies u to the stored transaction.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id string, u core.TransactionUpdate) (core.Transaction, error) {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, s.fail(ctx, applog.OpUpdate, fmt.Errorf("fetch transaction: %w", err))
	}

	next := u.Apply(current)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.repo.UpdateTransaction(ctx, next)
	if err != nil {
		return core.Transaction{}, s.fail(ctx, applog.OpUpdate, fmt.Errorf("update transaction: %w", err))
	}

	event := amqp.NewTransactionEvent(updated.ID, amqp.ActionUpdated, string(updated.Type), updated.CategoryID)
	event.PreviousCategoryID = current.CategoryID
	s.announce(ctx, event)
	return updated, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return s.fail(ctx, applog.OpDelete, fmt.Errorf("fetch transaction: %w", err))
	}
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return s.fail(ctx, applog.OpDelete, fmt.Errorf("delete transaction: %w", err))
	}
	s.announce(ctx, amqp.NewTransactionEvent(id, amqp.ActionDeleted, string(current.Type), current.CategoryID))
	return nil
}

func (s *TransactionService) announce(ctx context.Context, event *amqp.TransactionEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping transaction event",
			applog.FieldTransactionID, event.TransactionID)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			applog.FieldTransactionID, event.TransactionID,
			"action", event.Action,
			applog.FieldError, err)
	}
}

// GetFinancialSummary totals the transactions inside the period window.
func (s *TransactionService) GetFinancialSummary(ctx context.Context, period core.Period) (core.FinancialSummary, error) {
	txs, err := s.inWindow(ctx, core.PeriodWindow(period, s.now()), "")
	if err != nil {
		return core.FinancialSummary{}, s.fail(ctx, "summary", fmt.Errorf("financial summary: %w", err))
	}
	return core.Summarize(txs), nil
}

// GetExpenseBreakdown groups the period's expenses by category.
func (s *TransactionService) GetExpenseBreakdown(ctx context.Context, period core.Period) ([]core.ExpenseCategory, error) {
	txs, err := s.inWindow(ctx, core.PeriodWindow(period, s.now()), core.Expense)
	if err != nil {
		return nil, s.fail(ctx, "expense_breakdown", fmt.Errorf("expense breakdown: %w", err))
	}
	return core.BreakdownExpenses(txs), nil
}

// GetCashFlowData returns one income/expense point per month for the last
// months months, including the current one; months <= 0 means 6.
func (s *TransactionService) GetCashFlowData(ctx context.Context, months int) ([]core.CashFlowPoint, error) {
	if months <= 0 {
		months = DefaultCashFlowMonths
	}
	now := s.now()
	txs, err := s.inWindow(ctx, core.MonthsWindow(months, now), "")
	if err != nil {
		return nil, s.fail(ctx, "cash_flow", fmt.Errorf("cash flow: %w", err))
	}
	return core.CashFlowSeries(txs, months, now), nil
}

func (s *TransactionService) inWindow(ctx context.Context, w core.Window, typ core.TransactionType) ([]core.Transaction, error) {
	start, end := w.Start, w.End
	return s.repo.ListTransactions(ctx, core.TransactionFilter{StartDate: &start, EndDate: &end, Type: typ})
}

// InvoiceKey names an uploaded invoice: {transactionID}/{unixMillis}.{ext}.
func InvoiceKey(transactionID, filename string, at time.Time) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", transactionID, at.UnixMilli(), strings.ToLower(ext))
}

// UploadInvoice stores an invoice document for the transaction, records its
// public URL on the transaction and returns it.
func (s *TransactionService) UploadInvoice(ctx context.Context, transactionID, filename, contentType string, r io.Reader) (string, error) {
	if s.blobs == nil {
		return "", s.fail(ctx, "upload_invoice", fmt.Errorf("upload invoice: no blob store configured"))
	}
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return "", s.fail(ctx, "upload_invoice", fmt.Errorf("fetch transaction: %w", err))
	}

	key := InvoiceKey(transactionID, filename, s.now())
	url, err := s.blobs.Put(ctx, key, contentType, r)
	if err != nil {
		return "", s.fail(ctx, "upload_invoice", fmt.Errorf("store invoice: %w", err))
	}

	tx.InvoiceURL = url
	if _, err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return "", s.fail(ctx, "upload_invoice", fmt.Errorf("record invoice url: %w", err))
	}

	s.logger.InfoContext(ctx, "Invoice uploaded", applog.FieldTransactionID, transactionID, "key", key)
	return url, nil
}
