package scoring

import (
	"kinship/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIcebreakers(t *testing.T) {
	tests := []struct {
		name         string
		topics       []string
		participants int
		wantLen      int
		first        string
	}{
		{"music only", []string{"music"}, 3, 2, icebreakerPrompts["music"][0]},
		{"work fills cap", []string{"work", "music"}, 3, 3, icebreakerPrompts["work"][0]},
		{"no topics", nil, 3, 3, icebreakerPrompts[defaultTopic][0]},
		{"unknown topic", []string{"astronomy"}, 4, 3, icebreakerPrompts[defaultTopic][0]},
		{"duplicate topics", []string{"Music", "music "}, 3, 2, icebreakerPrompts["music"][0]},
		{"large group", []string{"music"}, 6, 3, largeGroupPrompt},
		{"five is not large", []string{"music"}, 5, 2, icebreakerPrompts["music"][0]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Icebreakers(tt.topics, tt.participants)
			assert.Len(t, got, tt.wantLen)
			assert.LessOrEqual(t, len(got), 3)
			assert.Equal(t, tt.first, got[0])
			seen := map[string]bool{}
			for _, p := range got {
				assert.False(t, seen[p], "duplicate prompt %q", p)
				seen[p] = true
			}
		})
	}
}

func TestDetectTopics(t *testing.T) {
	msgs := []*model.Message{
		{Text: "New ALBUM dropped"},
		{Text: "the project deadline moved"},
		{Text: "nothing here"},
	}
	assert.Equal(t, []string{"work", "music"}, DetectTopics(msgs))
	assert.Empty(t, DetectTopics(nil))
}

func TestNeedsIcebreakers(t *testing.T) {
	assert.True(t, NeedsIcebreakers(model.HealthScore{Composite: 0.49}, 0.5))
	assert.False(t, NeedsIcebreakers(model.HealthScore{Composite: 0.5}, 0.5))
}
