package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
	maxHistoryMonths   = 24
)

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func transactionsChanged(id string) map[string]string {
	return map[string]string{"id": id}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, "list_transactions", err)
		return
	}
	txs, err := s.svc.Transactions.GetTransactions(r.Context(), f)
	if err != nil {
		s.fail(w, r, "list_transactions", err)
		return
	}
	NewResponse().Data(nonNil(txs)).Write(w)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r.URL.Query(), "limit", defaultRecentLimit, 1, maxRecentLimit)
	txs, err := s.svc.Transactions.GetRecentTransactions(r.Context(), limit)
	if err != nil {
		s.fail(w, r, "recent_transactions", err)
		return
	}
	NewResponse().Data(nonNil(txs)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Transactions.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "get_transaction", err)
		return
	}
	NewResponse().Data(tx).Write(w)
}

func (s *Server) handleFinancialSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Transactions.GetFinancialSummary(r.Context(), core.ParsePeriod(r.URL.Query().Get("period")))
	if err != nil {
		s.fail(w, r, "financial_summary", err)
		return
	}
	NewResponse().Data(summary).Write(w)
}

func (s *Server) handleExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.svc.Transactions.GetExpenseBreakdown(r.Context(), core.ParsePeriod(r.URL.Query().Get("period")))
	if err != nil {
		s.fail(w, r, "expense_breakdown", err)
		return
	}
	NewResponse().Data(nonNil(breakdown)).Write(w)
}

func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	months := ParseIntParam(r.URL.Query(), "months", services.DefaultCashFlowMonths, 1, maxHistoryMonths)
	points, err := s.svc.Transactions.GetCashFlowData(r.Context(), months)
	if err != nil {
		s.fail(w, r, "cash_flow", err)
		return
	}
	NewResponse().Data(nonNil(points)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := DecodeJSON(w, r, &tx); err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}
	tx.ID = ""
	tx.InvoiceURL = ""
	tx.Description = sanitizeInput(tx.Description)
	tx.ReferenceNumber = sanitizeInput(tx.ReferenceNumber)
	tx.CreatedBy = session(r).UserID

	created, err := s.svc.Transactions.CreateTransaction(r.Context(), tx)
	if err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Data(created).
		Trigger("transactions:changed", transactionsChanged(created.ID)).
		TriggerSuccessNotification("Transaction created").
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var u core.TransactionUpdate
	if err := DecodeJSON(w, r, &u); err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	if u.Description != nil {
		d := sanitizeInput(*u.Description)
		u.Description = &d
	}

	id := r.PathValue("id")
	updated, err := s.svc.Transactions.UpdateTransaction(r.Context(), id, u)
	if err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	NewResponse().
		Data(updated).
		Trigger("transactions:changed", transactionsChanged(id)).
		TriggerSuccessNotification("Transaction updated").
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Transactions.DeleteTransaction(r.Context(), id); err != nil {
		s.fail(w, r, "delete_transaction", err)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		Trigger("transactions:changed", transactionsChanged(id)).
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}

type invoiceUploadResponse struct {
	InvoiceURL string `json:"invoice_url"`
}

func (s *Server) handleUploadInvoice(w http.ResponseWriter, r *http.Request) {
	up, err := ReadUpload(w, r, "file")
	if err != nil {
		s.fail(w, r, "upload_invoice", err)
		return
	}

	id := r.PathValue("id")
	url, err := s.svc.Transactions.UploadInvoice(r.Context(), id, up.Filename, up.ContentType, up.Reader())
	if err != nil {
		s.fail(w, r, "upload_invoice", err)
		return
	}
	NewResponse().
		Data(invoiceUploadResponse{InvoiceURL: url}).
		Trigger("transactions:changed", transactionsChanged(id)).
		TriggerSuccessNotification("Invoice uploaded").
		Write(w)
}
