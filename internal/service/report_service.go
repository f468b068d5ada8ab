package service

import (
	"context"
	"kinship/internal/apperr"
	"kinship/internal/cache"
	"kinship/internal/config"
	"kinship/internal/model"
	"kinship/internal/moderation"
	"log/slog"
	"strings"
)

// ReportService files user reports and derives ban decisions from rolling report counts
type ReportService struct {
	ledger cache.ReportLedger
	gw     *cache.Gateway
	ban    config.BanConfig
	clock  Clock
	logger *slog.Logger
}

func NewReportService(
	ledger cache.ReportLedger,
	gw *cache.Gateway,
	ban config.BanConfig,
	clock Clock,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		ledger: ledger,
		gw:     gw,
		ban:    ban,
		clock:  clock,
		logger: logger,
	}
}

// FileReport records one report per reporter, reported user and UTC day. Self-reports and
// same-day duplicates are rejected.
func (s *ReportService) FileReport(ctx context.Context, reporterID, reportedUserID string) (*model.ReportRecord, error) {
	reportedUserID = strings.TrimSpace(reportedUserID)
	if reportedUserID == "" {
		return nil, apperr.Validation("reportedUserId is required")
	}
	if reporterID == reportedUserID {
		return nil, apperr.Validation("users cannot report themselves")
	}

	now := s.clock.Now()
	rec := model.ReportRecord{
		ReporterID:     reporterID,
		ReportedUserID: reportedUserID,
		DayBucket:      cache.DayBucket(now),
		CreatedAt:      now,
	}

	var added bool
	err := s.gw.Write(ctx, []string{cache.ReportCountsKey(reportedUserID)}, func(ctx context.Context) error {
		var err error
		added, err = s.ledger.Record(ctx, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, apperr.Validation("already reported this user today").
			With("reportedUserId", reportedUserID).
			With("dayBucket", rec.DayBucket)
	}

	s.logger.Info("report filed", "reported", reportedUserID, "day", rec.DayBucket)
	return &rec, nil
}

// Counts returns the user's 24h and 30d report counts
func (s *ReportService) Counts(ctx context.Context, userID string) (model.ReportCounts, error) {
	return cache.Fetch(ctx, s.gw, cache.ReportCountsKey(userID), func(ctx context.Context) (model.ReportCounts, error) {
		return s.ledger.Counts(ctx, userID, s.clock.Now())
	})
}

// BanDecision applies the escalation table to the user's current counts
func (s *ReportService) BanDecision(ctx context.Context, userID string) (model.BanDecision, error) {
	counts, err := s.Counts(ctx, userID)
	if err != nil {
		return model.BanDecision{}, err
	}
	d := moderation.DecideBan(counts, s.ban)
	if d.ShouldBan {
		s.logger.Info("ban threshold reached", "userId", userID, "reason", d.Reason,
			"daily", counts.Daily, "monthly", counts.Monthly, "severity", moderation.Severity(d))
	}
	return d, nil
}
