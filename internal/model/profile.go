package model

import "time"

// Profile is a user's public or anonymous matching profile
type Profile struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	DisplayName string    `json:"displayName" bson:"displayName"`
	Anonymous   bool      `json:"anonymous" bson:"anonymous"`
	Topics      []string  `json:"topics" bson:"topics"`
	Interests   []string  `json:"interests" bson:"interests"` // keywords matched against message text
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// UserPreferences drive notification timing
type UserPreferences struct {
	UserID           string `json:"userId" bson:"_id"`
	SmartTiming      bool   `json:"smartTiming" bson:"smartTiming"`
	ActiveDuringWork bool   `json:"activeDuringWork" bson:"activeDuringWork"`
	Timezone         string `json:"timezone,omitempty" bson:"timezone,omitempty"`
}

// MatchRequest is the body of POST /matches
type MatchRequest struct {
	Text   string   `json:"text"`
	Topics []string `json:"topics"`
}

// MatchCandidate is a scored anonymous profile
type MatchCandidate struct {
	ProfileID    string  `json:"profileId"`
	UserID       string  `json:"userId"`
	TopicScore   float64 `json:"topicScore"`
	ContentScore float64 `json:"contentScore"`
	Total        float64 `json:"total"`
	Reason       string  `json:"reason"`
}
