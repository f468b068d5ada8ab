package handler

import (
	"encoding/json"
	"kinship/internal/apperr"
	"log/slog"
	"net/http"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error     string         `json:"error"`
	Kind      apperr.Kind    `json:"kind,omitempty"`
	Retryable bool           `json:"retryable"`
	Context   map[string]any `json:"context,omitempty"`
}

// StatusFor maps an error kind onto an HTTP status
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindModerationRejected:
		return http.StatusUnprocessableEntity
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorBody{Error: message})
}

// writeAppError classifies err and writes it. Internal details stay in the log.
func writeAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	ae := apperr.From(err)
	status := StatusFor(ae.Kind)
	body := errorBody{
		Error:     ae.Message,
		Kind:      ae.Kind,
		Retryable: apperr.Retryable(ae),
	}
	switch ae.Kind {
	case apperr.KindInternal:
		body.Error = "internal error"
		logger.Error("request failed", "error", err)
	case apperr.KindModerationRejected, apperr.KindRateLimited:
		body.Context = ae.Context
	default:
		logger.Debug("request rejected", "kind", ae.Kind, "error", err)
	}
	if ae.Kind == apperr.KindRateLimited {
		w.Header().Set("Retry-After", "1")
	}
	WriteJSON(w, status, body)
}
