package model

import "time"

// EngagementSample summarizes one direct chat from the current user's point of view
type EngagementSample struct {
	ChatID             string   `json:"chatId"`
	OtherUserID        string   `json:"otherUserId"`
	MessageCount       int      `json:"messageCount"`
	RecentMessageCount int      `json:"recentMessageCount"`
	AvgResponseMinutes *float64 `json:"avgResponseMinutes,omitempty"` // nil when no response pairs
	Sentiment          *float64 `json:"sentiment,omitempty"`
	EngagementPattern  *float64 `json:"engagementPattern,omitempty"`
}

// ContactScore is one ranked contact
type ContactScore struct {
	UserID string             `json:"userId"`
	Score  float64            `json:"score"`
	Chats  []EngagementSample `json:"chats,omitempty"`
}

// HealthScore grades a group conversation
type HealthScore struct {
	GroupID               string  `json:"groupId"`
	ParticipationBalance  float64 `json:"participationBalance"`
	ResponseTimeScore     float64 `json:"responseTimeScore"`
	PositivityScore       float64 `json:"positivityScore"`
	EngagementConsistency float64 `json:"engagementConsistency"`
	Composite             float64 `json:"composite"`
}

// GroupHealth is the health score plus any icebreakers it triggered
type GroupHealth struct {
	Score       HealthScore `json:"score"`
	Icebreakers []string    `json:"icebreakers,omitempty"`
}

// NotificationPlan says when a recipient should be notified
type NotificationPlan struct {
	RecipientID string        `json:"recipientId"`
	Delay       time.Duration `json:"delay"`
	DeliverAt   time.Time     `json:"deliverAt"`
}
