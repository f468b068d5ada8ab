package scoring

import (
	"fmt"
	"kinship/internal/model"
	"sort"
	"strings"
)

const (
	topicMatchWeight   = 0.6
	contentMatchWeight = 0.4
	minMatchScore      = 0.3
	maxMatches         = 5
	matchEpsilon       = 1e-9
)

// FindMatches scores anonymous profiles against the requester's topics and message text.
// The requester's own profiles are skipped. Results keep total >= 0.3, sorted descending
// (ties keep candidate order) and capped at five.
func FindMatches(selfID, text string, selfTopics []string, candidates []*model.Profile) []model.MatchCandidate {
	self := normalizeSet(selfTopics)
	lowered := strings.ToLower(text)

	var out []model.MatchCandidate
	for _, p := range candidates {
		if p == nil || p.UserID == selfID || p.ID == selfID {
			continue
		}
		shared, topic := topicScore(self, normalizeSet(p.Topics))
		content := contentScore(lowered, p.Interests)
		total := topicMatchWeight*topic + contentMatchWeight*content
		if total+matchEpsilon < minMatchScore {
			continue
		}
		out = append(out, model.MatchCandidate{
			ProfileID:    p.ID,
			UserID:       p.UserID,
			TopicScore:   topic,
			ContentScore: content,
			Total:        total,
			Reason:       matchReason(topic, content, shared),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	if len(out) > maxMatches {
		out = out[:maxMatches]
	}
	return out
}

// topicScore is |a ∩ b| / max(|a|, |b|); 0 when both are empty
func topicScore(a, b []string) ([]string, float64) {
	denom := max(len(a), len(b))
	if denom == 0 {
		return nil, 0
	}
	inB := make(map[string]bool, len(b))
	for _, t := range b {
		inB[t] = true
	}
	var shared []string
	for _, t := range a {
		if inB[t] {
			shared = append(shared, t)
		}
	}
	return shared, float64(len(shared)) / float64(denom)
}

// contentScore is the fraction of interests found in loweredText as substrings
func contentScore(loweredText string, interests []string) float64 {
	keywords := normalizeSet(interests)
	if len(keywords) == 0 || loweredText == "" {
		return 0
	}
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(loweredText, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func matchReason(topic, content float64, shared []string) string {
	switch {
	case topic >= 0.5 && content >= 0.5:
		return "You share topics and your message touches their interests"
	case topic > content && len(shared) > 0:
		return fmt.Sprintf("You both follow %s", strings.Join(shared, ", "))
	case content > topic:
		return "Your message mentions things they're into"
	default:
		return "Could be a good conversation partner"
	}
}

// normalizeSet lowercases, trims and dedupes, keeping first-seen order
func normalizeSet(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		x = strings.ToLower(strings.TrimSpace(x))
		if x == "" || seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	return out
}
