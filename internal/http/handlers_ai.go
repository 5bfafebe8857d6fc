package http

import (
	"net/http"
	"strings"

	"fintrack/internal/ai"
	"fintrack/internal/core"
)

type (
	queryRequest struct {
		Query string `json:"query"`
	}

	queryResponse struct {
		Response string       `json:"response"`
		Insight  core.Insight `json:"insight"`
	}

	invoiceAnalysisResponse struct {
		Extraction ai.InvoiceExtraction `json:"extraction"`
		Insight    core.Insight         `json:"insight"`
	}
)

func (s *Server) handleAIOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.svc.Insights.Overview(r.Context())
	if err != nil {
		s.fail(w, r, "ai_overview", err)
		return
	}
	NewResponse().Data(overview).Write(w)
}

func (s *Server) handleInsightHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.Insights.History(r.Context(), session(r).UserID)
	if err != nil {
		s.fail(w, r, "insight_history", err)
		return
	}
	NewResponse().Data(nonNil(history)).Write(w)
}

func (s *Server) handleAIQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "ai_query", err)
		return
	}

	insight, err := s.svc.Insights.Ask(r.Context(), session(r).UserID, sanitizeInput(req.Query))
	if err != nil {
		s.fail(w, r, "ai_query", err)
		return
	}
	NewResponse().
		Data(queryResponse{Response: insight.Response, Insight: insight}).
		Trigger("insights:changed", map[string]string{"id": insight.ID}).
		Write(w)
}

func acceptedInvoiceType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}

func (s *Server) handleAnalyzeInvoice(w http.ResponseWriter, r *http.Request) {
	up, err := ReadUpload(w, r, "file")
	if err != nil {
		s.fail(w, r, "analyze_invoice", err)
		return
	}
	if !acceptedInvoiceType(up.ContentType) {
		s.fail(w, r, "analyze_invoice", badRequest("unsupported file type %s", up.ContentType))
		return
	}

	extraction, insight, err := s.svc.Insights.AnalyzeInvoice(r.Context(), session(r).UserID, up.Filename,
		ai.InlineData{MimeType: up.ContentType, Data: up.Data})
	if err != nil {
		s.fail(w, r, "analyze_invoice", err)
		return
	}
	NewResponse().
		Data(invoiceAnalysisResponse{Extraction: extraction, Insight: insight}).
		Trigger("insights:changed", map[string]string{"id": insight.ID}).
		TriggerSuccessNotification("Invoice analyzed").
		Write(w)
}

func (s *Server) handleTaxTips(w http.ResponseWriter, r *http.Request) {
	tips, err := s.svc.Insights.TaxTips(r.Context(), core.ParsePeriod(r.URL.Query().Get("period")))
	if err != nil {
		s.fail(w, r, "tax_tips", err)
		return
	}
	NewResponse().Data(tips).Write(w)
}
