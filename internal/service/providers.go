package service

import (
	"context"
	"kinship/internal/cache"
	"kinship/internal/model"
	"kinship/internal/scoring"
	"log/slog"
	"time"
)

// Clock supplies the current time to the scoring paths
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock
func SystemClock() Clock { return systemClock{} }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// BatteryProvider reports a recipient's battery percentage, or a negative value when unknown
type BatteryProvider interface {
	Level(ctx context.Context, userID string) int
}

type unknownBattery struct{}

func (unknownBattery) Level(context.Context, string) int { return -1 }

// UnknownBattery never reports a level, so battery batching never applies
func UnknownBattery() BatteryProvider { return unknownBattery{} }

// StaticBattery reports fixed levels per user; users not listed are unknown
type StaticBattery map[string]int

func (b StaticBattery) Level(_ context.Context, userID string) int {
	if level, ok := b[userID]; ok {
		return level
	}
	return -1
}

// ActivityProvider decides whether a user is historically active during work hours
type ActivityProvider interface {
	ActiveDuringWork(ctx context.Context, userID string, prefs model.UserPreferences) bool
}

// HistoryActivity reads the hour-of-day send histogram and falls back to the stored
// preference until at least minSamples sends are recorded
type HistoryActivity struct {
	activity   cache.ActivityCache
	minSamples int64
	logger     *slog.Logger
}

func NewHistoryActivity(activity cache.ActivityCache, minSamples int64, logger *slog.Logger) *HistoryActivity {
	return &HistoryActivity{
		activity:   activity,
		minSamples: minSamples,
		logger:     logger,
	}
}

func (h *HistoryActivity) ActiveDuringWork(ctx context.Context, userID string, prefs model.UserPreferences) bool {
	hist, err := h.activity.HourHistogram(ctx, userID)
	if err != nil {
		h.logger.Warn("activity history unavailable", "userId", userID, "error", err)
		return prefs.ActiveDuringWork
	}
	if active, ok := scoring.ActiveDuringWork(hist, h.minSamples); ok {
		return active
	}
	return prefs.ActiveDuringWork
}

// PreferenceActivity trusts the stored preference only
type PreferenceActivity struct{}

func (PreferenceActivity) ActiveDuringWork(_ context.Context, _ string, prefs model.UserPreferences) bool {
	return prefs.ActiveDuringWork
}
