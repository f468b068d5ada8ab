package model

import "time"

// ReportRecord is one user reporting another. At most one per (reporter, reported, DayBucket).
type ReportRecord struct {
	ReporterID     string    `json:"reporterId"`
	ReportedUserID string    `json:"reportedUserId"`
	DayBucket      string    `json:"dayBucket"` // YYYY-MM-DD, UTC
	CreatedAt      time.Time `json:"createdAt"`
}

// ReportRequest is the body of POST /reports
type ReportRequest struct {
	ReportedUserID string `json:"reportedUserId"`
}

// ReportCounts are rolling report totals for one user
type ReportCounts struct {
	Daily   int64 `json:"daily"`
	Monthly int64 `json:"monthly"`
}

// BanDecision is the outcome of the escalation table. Duration is zero for no ban and for permanent bans.
type BanDecision struct {
	ShouldBan bool          `json:"shouldBan"`
	Permanent bool          `json:"permanent"`
	Duration  time.Duration `json:"duration"`
	Reason    string        `json:"reason"`
	Counts    ReportCounts  `json:"counts"`
}
