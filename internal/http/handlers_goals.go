package http

import (
	"net/http"
	"time"

	"github.com/aaron7k/wealth/internal/core"
)

type goalPayload struct {
	Name     string `json:"name"`
	Target   Amount `json:"target"`
	Deadline Date   `json:"deadline"`
}

type goalResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Target      Amount `json:"target"`
	Current     Amount `json:"current"`
	Deadline    Date   `json:"deadline"`
	IsCompleted bool   `json:"is_completed"`
}

func toGoalResponse(g core.Goal) goalResponse {
	return goalResponse{
		ID:          g.ID,
		Name:        g.Name,
		Target:      Amount{g.Target},
		Current:     Amount{g.Current},
		Deadline:    Date{g.Deadline},
		IsCompleted: g.IsCompleted,
	}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.storage.ListGoals(r.Context(), s.userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var payload goalPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	goal := core.Goal{
		UserID:   s.userID(r),
		Name:     payload.Name,
		Target:   payload.Target.Money,
		Deadline: payload.Deadline.Time,
	}
	if err := goal.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	created, err := s.storage.CreateGoal(r.Context(), goal)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGoalResponse(created))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.storage.GetGoal(r.Context(), s.userID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var payload goalPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	userID := s.userID(r)
	goal := core.Goal{
		ID:       r.PathValue("id"),
		UserID:   userID,
		Name:     payload.Name,
		Target:   payload.Target.Money,
		Deadline: payload.Deadline.Time,
	}
	if err := goal.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	if err := s.storage.UpdateGoal(r.Context(), goal); err != nil {
		respondServiceError(w, err)
		return
	}
	// Re-read so the response carries the running total.
	updated, err := s.storage.GetGoal(r.Context(), userID, goal.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(updated))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteGoal(r.Context(), s.userID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contributionPayload struct {
	Amount        Amount `json:"amount"`
	ContributedAt Date   `json:"contributed_at"`
	Notes         string `json:"notes"`
}

type contributionResponse struct {
	ID            string `json:"id"`
	GoalID        string `json:"goal_id"`
	Amount        Amount `json:"amount"`
	ContributedAt Date   `json:"contributed_at"`
	Notes         string `json:"notes,omitempty"`
}

func toContributionResponse(c core.GoalContribution) contributionResponse {
	return contributionResponse{
		ID:            c.ID,
		GoalID:        c.GoalID,
		Amount:        Amount{c.Amount},
		ContributedAt: Date{c.ContributedAt},
		Notes:         c.Notes,
	}
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	goalID := r.PathValue("id")
	// Listing contributions of a missing goal should 404, not return [].
	if _, err := s.storage.GetGoal(r.Context(), userID, goalID); err != nil {
		respondServiceError(w, err)
		return
	}
	contributions, err := s.storage.ListGoalContributions(r.Context(), userID, goalID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]contributionResponse, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, toContributionResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	var payload contributionPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := payload.Amount.Validate(); err != nil {
		respondServiceError(w, err)
		return
	}
	contributedAt := payload.ContributedAt.Time
	if contributedAt.IsZero() {
		contributedAt = time.Now()
	}
	created, err := s.storage.AddGoalContribution(r.Context(), s.userID(r), core.GoalContribution{
		GoalID:        r.PathValue("id"),
		Amount:        payload.Amount.Money,
		ContributedAt: contributedAt,
		Notes:         payload.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toContributionResponse(created))
}
