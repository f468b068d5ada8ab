package handler

import (
	"context"
	"kinship/internal/model"
	"kinship/internal/transport/rest/middleware"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type ContactRanker interface {
	Ranked(ctx context.Context, userID string, premium bool, limit int) ([]model.ContactScore, error)
	Cached(ctx context.Context, userID string, limit int) ([]model.ContactScore, error)
	Position(ctx context.Context, userID, contactID string) (int64, error)
}

// ContactHandler handles contact ranking endpoints
type ContactHandler struct {
	contactSvc ContactRanker
	logger     *slog.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactSvc ContactRanker, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contactSvc: contactSvc, logger: logger}
}

// Ranked handles GET /v1/contacts/ranked?limit=N&cached=true
func (h *ContactHandler) Ranked(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		contacts []model.ContactScore
		err      error
	)
	if r.URL.Query().Get("cached") == "true" {
		contacts, err = h.contactSvc.Cached(r.Context(), claims.UserID, limit)
	} else {
		contacts, err = h.contactSvc.Ranked(r.Context(), claims.UserID, claims.IsPremium(), limit)
	}
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"contacts": contacts,
		"premium":  claims.IsPremium(),
	})
}

// Position handles GET /v1/contacts/{contactId}/rank
func (h *ContactHandler) Position(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	contactID := mux.Vars(r)["contactId"]
	rank, err := h.contactSvc.Position(r.Context(), userID, contactID)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if rank < 0 {
		writeError(w, http.StatusNotFound, "contact not ranked")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"contactId": contactID,
		"rank":      rank,
	})
}
