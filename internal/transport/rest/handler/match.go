package handler

import (
	"context"
	"encoding/json"
	"kinship/internal/model"
	"kinship/internal/transport/rest/middleware"
	"log/slog"
	"net/http"
)

type Matcher interface {
	FindMatches(ctx context.Context, userID string, req model.MatchRequest) ([]model.MatchCandidate, error)
}

// MatchHandler handles anonymous matching
type MatchHandler struct {
	matchSvc Matcher
	logger   *slog.Logger
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchSvc Matcher, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc, logger: logger}
}

// Find handles POST /v1/matches
func (h *MatchHandler) Find(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matches, err := h.matchSvc.FindMatches(r.Context(), userID, req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}
