package scoring

import (
	"kinship/internal/model"
	"math"
	"time"
)

const (
	participationWeight = 0.4
	responseTimeWeight  = 0.3
	positivityWeight    = 0.2
	consistencyWeight   = 0.1

	responseWindow = 60 * time.Minute
)

// HealthOptions tunes the open-ended parts of the health score
type HealthOptions struct {
	// NeutralResponseScore is used when no sender-change pairs fall inside the response window.
	NeutralResponseScore float64
	Location             *time.Location
}

// Health grades a group conversation. Chats with two or fewer participants score exactly 1.0.
func Health(groupID string, participants []string, msgs []*model.Message, opts HealthOptions) model.HealthScore {
	if len(participants) <= 2 {
		return model.HealthScore{
			GroupID:               groupID,
			ParticipationBalance:  1,
			ResponseTimeScore:     1,
			PositivityScore:       1,
			EngagementConsistency: 1,
			Composite:             1,
		}
	}

	ordered := chronological(msgs)
	h := model.HealthScore{
		GroupID:               groupID,
		ParticipationBalance:  participationBalance(participants, ordered),
		ResponseTimeScore:     responseTimeScore(ordered, opts.NeutralResponseScore),
		PositivityScore:       positivity(ordered),
		EngagementConsistency: stability(ordered, opts.Location),
	}
	h.Composite = clamp01(participationWeight*h.ParticipationBalance +
		responseTimeWeight*h.ResponseTimeScore +
		positivityWeight*h.PositivityScore +
		consistencyWeight*h.EngagementConsistency)
	return h
}

// participationBalance is 1 - min(stddev/mean, 1) over per-participant message counts,
// counting participants who sent nothing. Vacuously balanced without messages.
func participationBalance(participants []string, msgs []*model.Message) float64 {
	if len(participants) < 2 || len(msgs) == 0 {
		return 1
	}
	idx := make(map[string]int, len(participants))
	for i, p := range participants {
		idx[p] = i
	}
	counts := make([]float64, len(participants))
	for _, m := range msgs {
		if i, ok := idx[m.SenderID]; ok {
			counts[i]++
		}
	}
	if mean(counts) == 0 {
		return 1
	}
	return 1 - math.Min(coefficientOfVariation(counts), 1)
}

// responseTimeScore averages gaps between consecutive messages from different senders
// that are shorter than the response window
func responseTimeScore(ordered []*model.Message, neutral float64) float64 {
	var total float64
	var pairs int
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if prev.SenderID == cur.SenderID {
			continue
		}
		gap := cur.SentAt.Sub(prev.SentAt)
		if gap < 0 || gap >= responseWindow {
			continue
		}
		total += gap.Minutes()
		pairs++
	}
	if pairs == 0 {
		return clamp01(neutral)
	}
	avg := total / float64(pairs)
	return math.Max(0, 1-avg/responseWindow.Minutes())
}
