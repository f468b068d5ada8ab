package handler

import (
	"context"
	"encoding/json"
	"kinship/internal/model"
	"kinship/internal/transport/rest/middleware"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type MessageSender interface {
	Send(ctx context.Context, senderID string, premium bool, chatID, text string) (*model.SendResult, error)
}

// MessageHandler handles the send pipeline endpoint
type MessageHandler struct {
	messageSvc MessageSender
	logger     *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageSvc MessageSender, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc, logger: logger}
}

// Send handles POST /v1/chats/{chatId}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.messageSvc.Send(r.Context(), claims.UserID, claims.IsPremium(), mux.Vars(r)["chatId"], req.Text)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}
