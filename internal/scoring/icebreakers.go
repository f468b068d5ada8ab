package scoring

import (
	"kinship/internal/model"
	"strings"
)

const (
	maxIcebreakers   = 3
	largeGroupSize   = 5
	defaultTopic     = "default"
	largeGroupPrompt = "Quick round for everyone: what's one thing that made you smile this week?"
)

var icebreakerPrompts = map[string][]string{
	"work": {
		"What's the most interesting thing you worked on this week?",
		"Any tools or shortcuts that saved you time lately?",
		"What's one work win, big or small, worth celebrating?",
	},
	"hobby": {
		"Picked up anything new to try on the weekend?",
		"What's a hobby you'd love to get into if you had the time?",
	},
	"music": {
		"What song have you had on repeat lately?",
		"Best concert you've ever been to?",
	},
	defaultTopic: {
		"What's something you're looking forward to?",
		"If you could be anywhere right now, where would it be?",
		"What's the best thing you've eaten recently?",
	},
}

// topic keywords used to infer topics from recent messages
var topicKeywords = map[string][]string{
	"work":  {"meeting", "deadline", "project", "office", "boss", "client", "standup", "sprint"},
	"hobby": {"hiking", "cooking", "gaming", "reading", "painting", "climbing", "garden", "weekend"},
	"music": {"song", "album", "concert", "band", "playlist", "guitar", "spotify", "gig"},
}

var topicOrder = []string{"work", "hobby", "music"}

// DetectTopics returns the known topics mentioned in msgs, in a fixed order
func DetectTopics(msgs []*model.Message) []string {
	seen := make(map[string]bool)
	for _, m := range msgs {
		text := strings.ToLower(m.Text)
		for topic, kws := range topicKeywords {
			if seen[topic] {
				continue
			}
			for _, kw := range kws {
				if strings.Contains(text, kw) {
					seen[topic] = true
					break
				}
			}
		}
	}
	var out []string
	for _, t := range topicOrder {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out
}

// NeedsIcebreakers reports whether the composite score is below threshold
func NeedsIcebreakers(h model.HealthScore, threshold float64) bool {
	return h.Composite < threshold
}

// Icebreakers suggests at most three conversation starters for the given topics. Unknown or
// missing topics fall back to the default set; groups larger than five get a round-robin prompt first.
func Icebreakers(topics []string, participantCount int) []string {
	var candidates []string
	if participantCount > largeGroupSize {
		candidates = append(candidates, largeGroupPrompt)
	}
	matched := false
	for _, t := range topics {
		prompts, ok := icebreakerPrompts[strings.ToLower(strings.TrimSpace(t))]
		if !ok {
			continue
		}
		matched = true
		candidates = append(candidates, prompts...)
	}
	if !matched {
		candidates = append(candidates, icebreakerPrompts[defaultTopic]...)
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, maxIcebreakers)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == maxIcebreakers {
			break
		}
	}
	return out
}
