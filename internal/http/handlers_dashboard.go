package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aaron7k/wealth/internal/services"
)

type categoryBreakdownResponse struct {
	CategoryID   string `json:"category_id,omitempty"`
	CategoryName string `json:"category_name"`
	Amount       Amount `json:"amount"`
}

type dashboardResponse struct {
	Currency        string                      `json:"currency"`
	TotalBalance    Amount                      `json:"total_balance"`
	MonthIncome     Amount                      `json:"month_income"`
	MonthExpenses   Amount                      `json:"month_expenses"`
	ExpensesByCat   []categoryBreakdownResponse `json:"expenses_by_category"`
	Budgets         []budgetResponse            `json:"budgets"`
	PendingTithe    Amount                      `json:"pending_tithe"`
	PendingSavings  Amount                      `json:"pending_savings"`
	UpcomingCharges []subscriptionResponse      `json:"upcoming_charges"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}

func toDashboardResponse(s services.DashboardSummary) dashboardResponse {
	byCat := make([]categoryBreakdownResponse, 0, len(s.ExpensesByCat))
	for _, c := range s.ExpensesByCat {
		byCat = append(byCat, categoryBreakdownResponse{
			CategoryID:   c.CategoryID,
			CategoryName: c.CategoryName,
			Amount:       Amount{c.Amount},
		})
	}
	budgets := make([]budgetResponse, 0, len(s.Budgets))
	for _, b := range s.Budgets {
		budgets = append(budgets, toBudgetResponse(b))
	}
	upcoming := make([]subscriptionResponse, 0, len(s.UpcomingCharges))
	for _, sub := range s.UpcomingCharges {
		upcoming = append(upcoming, toSubscriptionResponse(sub))
	}
	return dashboardResponse{
		Currency:        s.Currency,
		TotalBalance:    Amount{s.TotalBalance},
		MonthIncome:     Amount{s.MonthIncome},
		MonthExpenses:   Amount{s.MonthExpenses},
		ExpensesByCat:   byCat,
		Budgets:         budgets,
		PendingTithe:    Amount{s.PendingTithe},
		PendingSavings:  Amount{s.PendingSavings},
		UpcomingCharges: upcoming,
		GeneratedAt:     s.GeneratedAt,
	}
}

// handleDashboard serves the aggregate summary, cached per user and
// month. An optional month=YYYY-MM query selects a past month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if v := r.URL.Query().Get("month"); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("invalid month %q: expected YYYY-MM", v))
			return
		}
		now = t
	}

	userID := s.userID(r)
	key := dashboardKey(userID, now)
	if cached, ok := s.dashCache.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		respondJSON(w, http.StatusOK, toDashboardResponse(cached))
		return
	}

	summary, err := s.reporting.Summary(r.Context(), userID, now)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.dashCache.Set(key, summary)
	w.Header().Set("X-Cache", "MISS")
	respondJSON(w, http.StatusOK, toDashboardResponse(summary))
}
