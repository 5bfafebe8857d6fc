package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func budgetsChanged(id string) map[string]string {
	return map[string]string{"id": id}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	f, err := ParseBudgetFilter(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, "list_budgets", err)
		return
	}
	budgets, err := s.svc.Budgets.GetBudgets(r.Context(), f)
	if err != nil {
		s.fail(w, r, "list_budgets", err)
		return
	}
	NewResponse().Data(nonNil(budgets)).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Budgets.GetBudget(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "get_budget", err)
		return
	}
	NewResponse().Data(b).Write(w)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Budgets.GetBudgetPerformanceSummary(r.Context())
	if err != nil {
		s.fail(w, r, "budget_summary", err)
		return
	}
	NewResponse().Data(summary).Write(w)
}

func (s *Server) handleBudgetDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := s.svc.Budgets.GetDepartmentBudgetBreakdown(r.Context())
	if err != nil {
		s.fail(w, r, "budget_departments", err)
		return
	}
	NewResponse().Data(nonNil(departments)).Write(w)
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.svc.Budgets.GetBudgetAlerts(r.Context())
	if err != nil {
		s.fail(w, r, "budget_alerts", err)
		return
	}
	NewResponse().Data(nonNil(alerts)).Write(w)
}

func (s *Server) handleBudgetTrends(w http.ResponseWriter, r *http.Request) {
	months := ParseIntParam(r.URL.Query(), "months", services.DefaultCashFlowMonths, 1, maxHistoryMonths)
	trends, err := s.svc.Budgets.GetBudgetTrends(r.Context(), months)
	if err != nil {
		s.fail(w, r, "budget_trends", err)
		return
	}
	NewResponse().Data(nonNil(trends)).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := DecodeJSON(w, r, &b); err != nil {
		s.fail(w, r, "create_budget", err)
		return
	}
	b.ID = ""
	b.Name = sanitizeInput(b.Name)
	b.Department = sanitizeInput(b.Department)
	b.CreatedBy = session(r).UserID

	created, err := s.svc.Budgets.CreateBudget(r.Context(), b)
	if err != nil {
		s.fail(w, r, "create_budget", err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Data(created).
		Trigger("budgets:changed", budgetsChanged(created.ID)).
		TriggerSuccessNotification("Budget created").
		Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var u core.BudgetUpdate
	if err := DecodeJSON(w, r, &u); err != nil {
		s.fail(w, r, "update_budget", err)
		return
	}
	if u.Name != nil {
		n := sanitizeInput(*u.Name)
		u.Name = &n
	}

	id := r.PathValue("id")
	updated, err := s.svc.Budgets.UpdateBudget(r.Context(), id, u)
	if err != nil {
		s.fail(w, r, "update_budget", err)
		return
	}
	NewResponse().
		Data(updated).
		Trigger("budgets:changed", budgetsChanged(id)).
		TriggerSuccessNotification("Budget updated").
		Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Budgets.DeleteBudget(r.Context(), id); err != nil {
		s.fail(w, r, "delete_budget", err)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		Trigger("budgets:changed", budgetsChanged(id)).
		TriggerSuccessNotification("Budget deleted").
		Write(w)
}
