package moderation

import (
	"fmt"
	"kinship/internal/config"
	"kinship/internal/model"
	"time"
)

const (
	oneDay    = 24 * time.Hour
	threeDays = 3 * oneDay
	sevenDays = 7 * oneDay
)

// DecideBan applies the escalation table to rolling report counts. Rows are checked from
// most to least severe, so the first match wins.
func DecideBan(counts model.ReportCounts, cfg config.BanConfig) model.BanDecision {
	d := model.BanDecision{Counts: counts}
	switch {
	case counts.Monthly >= int64(cfg.PermanentMonthly):
		d.ShouldBan, d.Permanent = true, true
		d.Reason = fmt.Sprintf("%d reports in 30 days", counts.Monthly)
	case counts.Monthly >= int64(cfg.WeekMonthly):
		d.ShouldBan, d.Duration = true, sevenDays
		d.Reason = fmt.Sprintf("%d reports in 30 days", counts.Monthly)
	case counts.Daily >= int64(cfg.WeekDaily):
		d.ShouldBan, d.Duration = true, sevenDays
		d.Reason = fmt.Sprintf("%d reports in 24 hours", counts.Daily)
	case counts.Daily >= int64(cfg.ThreeDayDaily):
		d.ShouldBan, d.Duration = true, threeDays
		d.Reason = fmt.Sprintf("%d reports in 24 hours", counts.Daily)
	case counts.Daily >= int64(cfg.OneDayDaily):
		d.ShouldBan, d.Duration = true, oneDay
		d.Reason = fmt.Sprintf("%d reports in 24 hours", counts.Daily)
	default:
		d.Reason = "below escalation thresholds"
	}
	return d
}

// Severity orders decisions: 0 none, then by duration, permanent highest
func Severity(d model.BanDecision) int {
	switch {
	case !d.ShouldBan:
		return 0
	case d.Permanent:
		return 4
	case d.Duration >= sevenDays:
		return 3
	case d.Duration >= threeDays:
		return 2
	default:
		return 1
	}
}
