package scoring

import (
	"kinship/internal/model"
	"strings"
	"unicode"
)

var positiveWords = map[string]struct{}{
	"thanks": {}, "thank": {}, "great": {}, "awesome": {}, "love": {}, "nice": {},
	"good": {}, "happy": {}, "cool": {}, "amazing": {}, "glad": {}, "congrats": {},
	"haha": {}, "lol": {}, "yay": {}, "excellent": {}, "fun": {}, "welcome": {},
}

var negativeWords = map[string]struct{}{
	"hate": {}, "bad": {}, "awful": {}, "terrible": {}, "angry": {}, "sad": {},
	"annoying": {}, "boring": {}, "worst": {}, "ugh": {}, "stupid": {}, "sorry": {},
	"upset": {}, "disappointed": {}, "whatever": {},
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// netSentiment is positive minus negative lexicon hits in text
func netSentiment(text string) int {
	net := 0
	for _, w := range words(text) {
		if _, ok := positiveWords[w]; ok {
			net++
		} else if _, ok := negativeWords[w]; ok {
			net--
		}
	}
	return net
}

// positivity starts at 0.5 and moves 0.1 per net hit across all messages, clamped to [0,1]
func positivity(msgs []*model.Message) float64 {
	score := 0.5
	for _, m := range msgs {
		score += float64(netSentiment(m.Text)) * 0.1
	}
	return clamp01(score)
}
