package scoring

import (
	"fmt"
	"kinship/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(id string, topics, interests []string) *model.Profile {
	return &model.Profile{ID: id, UserID: "u-" + id, Anonymous: true, Topics: topics, Interests: interests}
}

func TestFindMatches(t *testing.T) {
	candidates := []*model.Profile{
		profile("none", []string{"cooking"}, nil),
		profile("full", []string{"Go", "music"}, []string{"guitar", "JAZZ"}),
		profile("third", []string{"music", "art", "film"}, nil),
		profile("two-thirds", []string{"music", "go", "art"}, nil),
		profile("edge", []string{"go", "knitting"}, nil),
		{ID: "mine", UserID: "me", Topics: []string{"music", "go"}, Interests: []string{"jazz"}},
	}

	got := FindMatches("me", "I love jazz", []string{"music", "go"}, candidates)
	require.Len(t, got, 3)

	assert.Equal(t, "full", got[0].ProfileID)
	assert.InDelta(t, 1.0, got[0].TopicScore, 1e-9)
	assert.InDelta(t, 0.5, got[0].ContentScore, 1e-9)
	assert.InDelta(t, 0.8, got[0].Total, 1e-9)
	assert.NotEmpty(t, got[0].Reason)

	assert.Equal(t, "two-thirds", got[1].ProfileID)
	assert.InDelta(t, 0.4, got[1].Total, 1e-9)
	assert.Contains(t, got[1].Reason, "music")

	assert.Equal(t, "edge", got[2].ProfileID)
	assert.InDelta(t, 0.3, got[2].Total, 1e-9)

	for _, m := range got {
		assert.NotEqual(t, "me", m.UserID)
		assert.GreaterOrEqual(t, m.Total+matchEpsilon, 0.3)
	}
}

func TestFindMatchesCapsAndIsDeterministic(t *testing.T) {
	var candidates []*model.Profile
	for i := 0; i < 8; i++ {
		candidates = append(candidates, profile(fmt.Sprintf("p%d", i), []string{"music"}, []string{"jazz"}))
	}
	first := FindMatches("me", "jazz night", []string{"music"}, candidates)
	require.Len(t, first, 5)
	for i, m := range first {
		assert.Equal(t, fmt.Sprintf("p%d", i), m.ProfileID)
	}
	assert.Equal(t, first, FindMatches("me", "jazz night", []string{"music"}, candidates))
}

func TestFindMatchesContentOnly(t *testing.T) {
	got := FindMatches("me", "Anyone into BOULDERING or climbing?", nil, []*model.Profile{
		profile("climber", []string{"outdoors"}, []string{"climbing", "bouldering"}),
	})
	require.Len(t, got, 1)
	assert.InDelta(t, 0.4, got[0].Total, 1e-9)
	assert.Equal(t, "Your message mentions things they're into", got[0].Reason)
}

func TestTopicScoreEmptySets(t *testing.T) {
	_, score := topicScore(nil, nil)
	assert.Zero(t, score)
	_, score = topicScore([]string{"a"}, nil)
	assert.Zero(t, score)
}
