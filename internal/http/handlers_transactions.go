package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/storage"
)

type transactionPayload struct {
	Description   string               `json:"description"`
	Amount        Amount               `json:"amount"`
	Type          core.TransactionType `json:"type"`
	Date          Date                 `json:"date"`
	AccountID     string               `json:"account_id"`
	CategoryID    string               `json:"category_id"`
	GenerateTithe bool                 `json:"generate_tithe"`
}

type transactionResponse struct {
	ID            string               `json:"id"`
	Description   string               `json:"description"`
	Amount        Amount               `json:"amount"`
	Type          core.TransactionType `json:"type"`
	Date          Date                 `json:"date"`
	AccountID     string               `json:"account_id"`
	CategoryID    string               `json:"category_id,omitempty"`
	GenerateTithe bool                 `json:"generate_tithe"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		Description:   t.Description,
		Amount:        Amount{t.Amount},
		Type:          t.Type,
		Date:          Date{t.Date},
		AccountID:     t.AccountID,
		CategoryID:    t.CategoryID,
		GenerateTithe: t.GenerateTithe,
	}
}

func (p transactionPayload) toTransaction(userID string) core.Transaction {
	return core.Transaction{
		UserID:        userID,
		Description:   p.Description,
		Amount:        p.Amount.Money,
		Type:          p.Type,
		Date:          p.Date.Time,
		AccountID:     p.AccountID,
		CategoryID:    p.CategoryID,
		GenerateTithe: p.GenerateTithe,
	}
}

// transactionFilterFromQuery builds a filter from list query params:
// account_id, category_id, type, from, to, limit.
func transactionFilterFromQuery(r *http.Request) (storage.TransactionFilter, error) {
	q := r.URL.Query()
	f := storage.TransactionFilter{
		AccountID:  q.Get("account_id"),
		CategoryID: q.Get("category_id"),
		Type:       core.TransactionType(q.Get("type")),
	}
	if f.Type != "" && !f.Type.Valid() {
		return storage.TransactionFilter{}, core.ErrInvalidType
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return storage.TransactionFilter{}, err
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return storage.TransactionFilter{}, err
		}
		f.To = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return storage.TransactionFilter{}, core.ErrInvalidAmount
		}
		f.Limit = n
	}
	return f, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	txns, err := s.storage.ListTransactions(r.Context(), s.userID(r), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	userID := s.userID(r)
	created, err := s.transactions.CreateTransaction(r.Context(), payload.toTransaction(userID))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.invalidateDashboard(userID, created.Date)
	respondJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.storage.GetTransaction(r.Context(), s.userID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	userID := s.userID(r)
	t := payload.toTransaction(userID)
	t.ID = r.PathValue("id")
	if err := s.transactions.UpdateTransaction(r.Context(), t); err != nil {
		respondServiceError(w, err)
		return
	}
	s.invalidateDashboard(userID, t.Date)
	respondJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	t, err := s.storage.GetTransaction(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := s.transactions.DeleteTransaction(r.Context(), userID, t.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	s.invalidateDashboard(userID, t.Date)
	w.WriteHeader(http.StatusNoContent)
}

type transferPayload struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        Amount `json:"amount"`
	Description   string `json:"description"`
	Date          Date   `json:"date"`
}

type transferResponse struct {
	Outgoing transactionResponse `json:"outgoing"`
	Incoming transactionResponse `json:"incoming"`
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var payload transferPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if payload.FromAccountID == "" || payload.ToAccountID == "" {
		respondServiceError(w, core.ErrMissingAccount)
		return
	}
	if payload.FromAccountID == payload.ToAccountID {
		respondError(w, http.StatusUnprocessableEntity,
			errors.New("source and destination are the same account"))
		return
	}
	date := payload.Date.Time
	if date.IsZero() {
		date = time.Now()
	}
	userID := s.userID(r)
	out, in, err := s.transactions.Transfer(r.Context(), userID,
		payload.FromAccountID, payload.ToAccountID, payload.Amount.Money, payload.Description, date)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.invalidateDashboard(userID, date)
	respondJSON(w, http.StatusCreated, transferResponse{
		Outgoing: toTransactionResponse(out),
		Incoming: toTransactionResponse(in),
	})
}
