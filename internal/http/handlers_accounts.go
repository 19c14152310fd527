package http

import (
	"net/http"

	"github.com/aaron7k/wealth/internal/core"
)

type accountPayload struct {
	Name     string           `json:"name"`
	Type     core.AccountType `json:"type"`
	Balance  Amount           `json:"balance"`
	Currency string           `json:"currency"`
	BankName string           `json:"bank_name"`
	IsActive *bool            `json:"is_active"`
}

type accountResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Type     core.AccountType `json:"type"`
	Balance  Amount           `json:"balance"`
	Currency string           `json:"currency"`
	BankName string           `json:"bank_name,omitempty"`
	IsActive bool             `json:"is_active"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:       a.ID,
		Name:     a.Name,
		Type:     a.Type,
		Balance:  Amount{a.Balance},
		Currency: a.Currency,
		BankName: a.BankName,
		IsActive: a.IsActive,
	}
}

func (p accountPayload) toAccount(userID string) core.Account {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return core.Account{
		UserID:   userID,
		Name:     p.Name,
		Type:     p.Type,
		Balance:  p.Balance.Money,
		Currency: p.Currency,
		BankName: p.BankName,
		IsActive: active,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.storage.ListAccounts(r.Context(), s.userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	account := payload.toAccount(s.userID(r))
	if err := account.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	created, err := s.storage.CreateAccount(r.Context(), account)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.storage.GetAccount(r.Context(), s.userID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	account := payload.toAccount(s.userID(r))
	account.ID = r.PathValue("id")
	if err := account.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	if err := s.storage.UpdateAccount(r.Context(), account); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteAccount(r.Context(), s.userID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryPayload struct {
	Name  string               `json:"name"`
	Type  core.TransactionType `json:"type"`
	Color string               `json:"color"`
	Icon  string               `json:"icon"`
}

type categoryResponse struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	Type  core.TransactionType `json:"type"`
	Color string               `json:"color,omitempty"`
	Icon  string               `json:"icon,omitempty"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Type: c.Type, Color: c.Color, Icon: c.Icon}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.storage.ListCategories(r.Context(), s.userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	category := core.Category{
		UserID: s.userID(r),
		Name:   payload.Name,
		Type:   payload.Type,
		Color:  payload.Color,
		Icon:   payload.Icon,
	}
	if err := category.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	created, err := s.storage.CreateCategory(r.Context(), category)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	category := core.Category{
		ID:     r.PathValue("id"),
		UserID: s.userID(r),
		Name:   payload.Name,
		Type:   payload.Type,
		Color:  payload.Color,
		Icon:   payload.Icon,
	}
	if err := category.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	if err := s.storage.UpdateCategory(r.Context(), category); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteCategory(r.Context(), s.userID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
