package http

import (
	"net/http"

	"github.com/aaron7k/wealth/internal/core"
)

type budgetPayload struct {
	Name       string      `json:"name"`
	Amount     Amount      `json:"amount"`
	Period     core.Period `json:"period"`
	StartDate  Date        `json:"start_date"`
	EndDate    Date        `json:"end_date"`
	CategoryID string      `json:"category_id"`
	IsActive   *bool       `json:"is_active"`
}

type budgetResponse struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Amount     Amount      `json:"amount"`
	Period     core.Period `json:"period"`
	StartDate  Date        `json:"start_date"`
	EndDate    Date        `json:"end_date"`
	CategoryID string      `json:"category_id,omitempty"`
	IsActive   bool        `json:"is_active"`
	Spent      Amount      `json:"spent"`
	Remaining  Amount      `json:"remaining"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		Name:       b.Name,
		Amount:     Amount{b.Amount},
		Period:     b.Period,
		StartDate:  Date{b.StartDate},
		EndDate:    Date{b.EndDate},
		CategoryID: b.CategoryID,
		IsActive:   b.IsActive,
		Spent:      Amount{b.Spent},
		Remaining:  Amount{b.Remaining},
	}
}

func (p budgetPayload) toBudget(userID string) core.Budget {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return core.Budget{
		UserID:     userID,
		Name:       p.Name,
		Amount:     p.Amount.Money,
		Period:     p.Period,
		StartDate:  p.StartDate.Time,
		EndDate:    p.EndDate.Time,
		CategoryID: p.CategoryID,
		IsActive:   active,
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.reporting.BudgetsWithSpent(r.Context(), s.userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var payload budgetPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	budget := payload.toBudget(s.userID(r))
	if err := budget.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	created, err := s.storage.CreateBudget(r.Context(), budget)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.reporting.BudgetWithSpent(r.Context(), s.userID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var payload budgetPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	budget := payload.toBudget(s.userID(r))
	budget.ID = r.PathValue("id")
	if err := budget.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	if err := s.storage.UpdateBudget(r.Context(), budget); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteBudget(r.Context(), s.userID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
