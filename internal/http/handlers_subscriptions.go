package http

import (
	"net/http"

	"github.com/aaron7k/wealth/internal/core"
)

type subscriptionPayload struct {
	Name            string                  `json:"name"`
	Amount          Amount                  `json:"amount"`
	BillingCycle    core.Period             `json:"billing_cycle"`
	NextBillingDate Date                    `json:"next_billing_date"`
	Status          core.SubscriptionStatus `json:"status"`
	AccountID       string                  `json:"account_id"`
	CategoryID      string                  `json:"category_id"`
}

type subscriptionResponse struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Amount          Amount                  `json:"amount"`
	BillingCycle    core.Period             `json:"billing_cycle"`
	NextBillingDate Date                    `json:"next_billing_date"`
	Status          core.SubscriptionStatus `json:"status"`
	AccountID       string                  `json:"account_id"`
	CategoryID      string                  `json:"category_id,omitempty"`
}

func toSubscriptionResponse(sub core.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:              sub.ID,
		Name:            sub.Name,
		Amount:          Amount{sub.Amount},
		BillingCycle:    sub.BillingCycle,
		NextBillingDate: Date{sub.NextBillingDate},
		Status:          sub.Status,
		AccountID:       sub.AccountID,
		CategoryID:      sub.CategoryID,
	}
}

func (p subscriptionPayload) toSubscription(userID string) core.Subscription {
	status := p.Status
	if status == "" {
		status = core.SubscriptionActive
	}
	return core.Subscription{
		UserID:          userID,
		Name:            p.Name,
		Amount:          p.Amount.Money,
		BillingCycle:    p.BillingCycle,
		NextBillingDate: p.NextBillingDate.Time,
		Status:          status,
		AccountID:       p.AccountID,
		CategoryID:      p.CategoryID,
	}
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.storage.ListSubscriptions(r.Context(), s.userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionResponse(sub))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var payload subscriptionPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	sub := payload.toSubscription(s.userID(r))
	if err := sub.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	created, err := s.storage.CreateSubscription(r.Context(), sub)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toSubscriptionResponse(created))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var payload subscriptionPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	sub := payload.toSubscription(s.userID(r))
	sub.ID = r.PathValue("id")
	if err := sub.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	if err := s.storage.UpdateSubscription(r.Context(), sub); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteSubscription(r.Context(), s.userID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
