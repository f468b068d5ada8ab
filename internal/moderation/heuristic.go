package moderation

import (
	"math"
	"strings"
	"unicode"
)

const (
	keywordIncrement     = 0.3
	punctuationIncrement = 0.1
	capsIncrement        = 0.2
	capsRatio            = 0.7
	capsMinLetters       = 10
)

// HeuristicToxicity is the local fallback used when the classifier is unavailable
func HeuristicToxicity(text string, keywords []string) float64 {
	lowered := strings.ToLower(text)
	score := 0.0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lowered, kw) {
			score += keywordIncrement
		}
	}
	if strings.Contains(text, "!!!") || strings.Contains(text, "???") {
		score += punctuationIncrement
	}
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= capsMinLetters && float64(upper)/float64(letters) > capsRatio {
		score += capsIncrement
	}
	return math.Min(score, 1)
}
