package http

import (
	"net/http"
	"time"

	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/services"
)

type periodEntryResponse struct {
	ID          string          `json:"id"`
	Kind        core.LedgerKind `json:"kind"`
	Amount      Amount          `json:"amount"`
	PeriodType  core.Period     `json:"period_type"`
	PeriodStart Date            `json:"period_start"`
	PeriodEnd   Date            `json:"period_end"`
	IsPaid      bool            `json:"is_paid"`
	PaidDate    Date            `json:"paid_date"`
	Notes       string          `json:"notes,omitempty"`
}

type ledgerOverviewResponse struct {
	Paid    Amount                `json:"paid"`
	Pending Amount                `json:"pending"`
	Entries []periodEntryResponse `json:"entries"`
}

func toPeriodEntryResponse(e core.PeriodEntry) periodEntryResponse {
	return periodEntryResponse{
		ID:          e.ID,
		Kind:        e.Kind,
		Amount:      Amount{e.Amount},
		PeriodType:  e.PeriodType,
		PeriodStart: Date{e.PeriodStart},
		PeriodEnd:   Date{e.PeriodEnd},
		IsPaid:      e.IsPaid,
		PaidDate:    Date{e.PaidDate},
		Notes:       e.Notes,
	}
}

func toLedgerOverviewResponse(o services.Overview) ledgerOverviewResponse {
	entries := make([]periodEntryResponse, 0, len(o.Entries))
	for _, e := range o.Entries {
		entries = append(entries, toPeriodEntryResponse(e))
	}
	return ledgerOverviewResponse{
		Paid:    Amount{o.Paid},
		Pending: Amount{o.Pending},
		Entries: entries,
	}
}

func (s *Server) handleLedgerOverview(w http.ResponseWriter, r *http.Request, kind core.LedgerKind) {
	overview, err := s.ledger.Overview(r.Context(), s.userID(r), kind)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toLedgerOverviewResponse(overview))
}

func (s *Server) handleDiezmoOverview(w http.ResponseWriter, r *http.Request) {
	s.handleLedgerOverview(w, r, core.LedgerDiezmo)
}

func (s *Server) handleSavingsOverview(w http.ResponseWriter, r *http.Request) {
	s.handleLedgerOverview(w, r, core.LedgerSavings)
}

type markPaidPayload struct {
	PaidDate Date `json:"paid_date"`
}

func (s *Server) handleMarkEntryPaid(w http.ResponseWriter, r *http.Request) {
	var payload markPaidPayload
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &payload); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
	}
	paidOn := payload.PaidDate.Time
	if paidOn.IsZero() {
		paidOn = time.Now()
	}
	userID := s.userID(r)
	id := r.PathValue("id")
	if err := s.ledger.MarkPaid(r.Context(), userID, id, paidOn); err != nil {
		respondServiceError(w, err)
		return
	}
	entry, err := s.storage.GetPeriodEntry(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPeriodEntryResponse(entry))
}

func (s *Server) handleRecalculateDiezmo(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ledger.Recalculate(r.Context(), s.userID(r), time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPeriodEntryResponse(entry))
}

type profilePayload struct {
	TitheEnabled      bool        `json:"tithe_enabled"`
	TithePeriod       core.Period `json:"tithe_period"`
	AutoDeductTithe   bool        `json:"auto_deduct_tithe"`
	SavingsPercentage int         `json:"savings_percentage"`
	DefaultCurrency   string      `json:"default_currency"`
}

type profileResponse struct {
	TitheEnabled      bool        `json:"tithe_enabled"`
	TithePeriod       core.Period `json:"tithe_period"`
	AutoDeductTithe   bool        `json:"auto_deduct_tithe"`
	SavingsPercentage int         `json:"savings_percentage"`
	DefaultCurrency   string      `json:"default_currency"`
}

func toProfileResponse(p core.Profile) profileResponse {
	return profileResponse{
		TitheEnabled:      p.TitheEnabled,
		TithePeriod:       p.TithePeriod,
		AutoDeductTithe:   p.AutoDeductTithe,
		SavingsPercentage: p.SavingsPercentage,
		DefaultCurrency:   p.DefaultCurrency,
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.storage.GetProfile(r.Context(), s.userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload profilePayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	userID := s.userID(r)
	profile := core.Profile{
		UserID:            userID,
		TitheEnabled:      payload.TitheEnabled,
		TithePeriod:       payload.TithePeriod,
		AutoDeductTithe:   payload.AutoDeductTithe,
		SavingsPercentage: payload.SavingsPercentage,
		DefaultCurrency:   payload.DefaultCurrency,
	}
	if err := profile.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	if err := s.storage.UpdateProfile(r.Context(), profile); err != nil {
		respondServiceError(w, err)
		return
	}
	// Settings shape the dashboard, drop whatever is cached.
	s.invalidateDashboard(userID, time.Now())
	respondJSON(w, http.StatusOK, toProfileResponse(profile))
}
