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

type Reporter interface {
	FileReport(ctx context.Context, reporterID, reportedUserID string) (*model.ReportRecord, error)
	BanDecision(ctx context.Context, userID string) (model.BanDecision, error)
}

// ReportHandler handles user reports and ban decisions
type ReportHandler struct {
	reportSvc Reporter
	logger    *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportSvc Reporter, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc, logger: logger}
}

// File handles POST /v1/reports
func (h *ReportHandler) File(w http.ResponseWriter, r *http.Request) {
	reporterID := middleware.GetUserID(r.Context())
	if reporterID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.reportSvc.FileReport(r.Context(), reporterID, req.ReportedUserID)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, rec)
}

// BanDecision handles GET /v1/users/{userId}/ban-decision
func (h *ReportHandler) BanDecision(w http.ResponseWriter, r *http.Request) {
	decision, err := h.reportSvc.BanDecision(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, decision)
}
