package handler

import (
	"context"
	"kinship/internal/model"
	"kinship/internal/transport/rest/middleware"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type GroupScorer interface {
	Health(ctx context.Context, userID, chatID string) (*model.GroupHealth, error)
}

// GroupHandler handles conversation health endpoints
type GroupHandler struct {
	groupSvc GroupScorer
	logger   *slog.Logger
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupSvc GroupScorer, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc, logger: logger}
}

// Health handles GET /v1/groups/{chatId}/health
func (h *GroupHandler) Health(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	health, err := h.groupSvc.Health(r.Context(), userID, mux.Vars(r)["chatId"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, health)
}
