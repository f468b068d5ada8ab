package scoring

import (
	"kinship/internal/model"
	"math"
	"sort"
	"time"
)

const (
	messageCountWeight     = 0.1
	messageCountCap        = 2.0
	recentMessageBonus     = 0.5
	recentWindow           = 24 * time.Hour
	fastResponseMinutes    = 60
	slowResponseMinutes    = 180
	fastResponseBonus      = 1.0
	slowResponseBonus      = 0.5
	premiumSentimentWeight = 0.5
	premiumPatternWeight   = 0.3
)

// RankInput is everything Rank needs about the current user's direct chats
type RankInput struct {
	CurrentUserID    string
	Candidates       []string
	ChatsByCandidate map[string][]*model.Chat
	MessagesByChat   map[string][]*model.Message
	Premium          bool
	Now              time.Time
	Location         *time.Location
}

// Rank scores every candidate over their direct chats with the current user and sorts
// descending. Ties keep input order.
func Rank(in RankInput) []model.ContactScore {
	out := make([]model.ContactScore, 0, len(in.Candidates))
	for _, candidate := range in.Candidates {
		cs := model.ContactScore{UserID: candidate}
		for _, chat := range in.ChatsByCandidate[candidate] {
			if !chat.IsDirect() || !chat.HasParticipant(in.CurrentUserID) || !chat.HasParticipant(candidate) {
				continue
			}
			s := Sample(chat, in.MessagesByChat[chat.ID], in.CurrentUserID, in.Now, in.Premium, in.Location)
			cs.Score += ChatScore(s, in.Premium)
			cs.Chats = append(cs.Chats, s)
		}
		out = append(out, cs)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Sample derives the engagement signals of one direct chat. Premium signals are only
// computed when premium is set.
func Sample(chat *model.Chat, msgs []*model.Message, currentUserID string, now time.Time, premium bool, loc *time.Location) model.EngagementSample {
	s := model.EngagementSample{
		ChatID:       chat.ID,
		OtherUserID:  chat.Peer(currentUserID),
		MessageCount: len(msgs),
	}
	cutoff := now.Add(-recentWindow)
	for _, m := range msgs {
		if m.SentAt.After(cutoff) && !m.SentAt.After(now) {
			s.RecentMessageCount++
		}
	}
	if avg, ok := responderLatency(msgs, currentUserID, s.OtherUserID); ok {
		s.AvgResponseMinutes = &avg
	}
	if premium {
		sentiment := positivity(msgs)
		pattern := stability(msgs, loc)
		s.Sentiment = &sentiment
		s.EngagementPattern = &pattern
	}
	return s
}

// ChatScore is the per-chat contribution to a contact's rank
func ChatScore(s model.EngagementSample, premium bool) float64 {
	score := math.Min(float64(s.MessageCount)*messageCountWeight, messageCountCap)
	score += float64(s.RecentMessageCount) * recentMessageBonus
	if s.AvgResponseMinutes != nil {
		switch avg := *s.AvgResponseMinutes; {
		case avg < fastResponseMinutes:
			score += fastResponseBonus
		case avg < slowResponseMinutes:
			score += slowResponseBonus
		}
	}
	if premium {
		if s.Sentiment != nil {
			score += premiumSentimentWeight * *s.Sentiment
		}
		if s.EngagementPattern != nil {
			score += premiumPatternWeight * *s.EngagementPattern
		}
	}
	return score
}

// responderLatency averages how long responder took to answer a message from initiator
func responderLatency(msgs []*model.Message, initiator, responder string) (float64, bool) {
	ordered := chronological(msgs)
	var total float64
	var pairs int
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if prev.SenderID != initiator || cur.SenderID != responder {
			continue
		}
		total += cur.SentAt.Sub(prev.SentAt).Minutes()
		pairs++
	}
	if pairs == 0 {
		return 0, false
	}
	return total / float64(pairs), true
}
