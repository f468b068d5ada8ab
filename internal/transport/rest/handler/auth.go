package handler

import (
	"encoding/json"
	"kinship/internal/model"
	"log/slog"
	"net/http"
)

type TokenIssuer interface {
	IssueToken(userID string, tier model.Tier) (*model.TokenResponse, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc TokenIssuer
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, logger: logger}
}

// IssueToken handles POST /v1/auth/token
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req model.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.IssueToken(req.UserID, req.Tier)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}
