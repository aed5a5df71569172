package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valstan/setka/internal/core"
)

func post(category string, sentiment core.SentimentLabel, score float64) *core.Post {
	return &core.Post{AICategory: category, SentimentLabel: sentiment, AIScore: score}
}

func TestMixRespectsMorningCategoryFractions(t *testing.T) {
	// n=20 makes every morning fraction (0.40/0.20/0.15/0.15/0.10) land on
	// an exact integer quota, so no remainder-fill slots leak across
	// categories and the histogram must match the table precisely.
	var candidates []*core.Post
	add := func(category string, count int) {
		for i := 0; i < count; i++ {
			candidates = append(candidates, post(category, core.SentimentNeutral, float64(100-i)))
		}
	}
	add(CategoryNews, 10)
	add(CategoryAdmin, 10)
	add(CategoryCulture, 10)
	add(CategorySport, 10)
	add(CategoryNeighborhood, 10)

	result := Mix(candidates, 20, SlotMorning)
	require.Len(t, result.Posts, 20)
	assert.Equal(t, 8, result.Stats.CategoryHistogram[CategoryNews])
	assert.Equal(t, 4, result.Stats.CategoryHistogram[CategoryAdmin])
	assert.Equal(t, 3, result.Stats.CategoryHistogram[CategoryCulture])
	assert.Equal(t, 3, result.Stats.CategoryHistogram[CategorySport])
	assert.Equal(t, 2, result.Stats.CategoryHistogram[CategoryNeighborhood])
}

func TestMixFillsShortfallByDescendingScore(t *testing.T) {
	candidates := []*core.Post{
		post(CategoryNews, core.SentimentNeutral, 90),
		post(CategoryNews, core.SentimentNeutral, 80),
		post(CategorySport, core.SentimentNeutral, 95),
	}
	result := Mix(candidates, 3, SlotMorning)
	assert.Len(t, result.Posts, 3)
}

func TestMixCapsNegativeShare(t *testing.T) {
	var candidates []*core.Post
	for i := 0; i < 8; i++ {
		candidates = append(candidates, post(CategoryNews, core.SentimentNegative, float64(90-i)))
	}
	for i := 0; i < 2; i++ {
		candidates = append(candidates, post(CategoryNews, core.SentimentPositive, float64(70-i)))
	}
	for i := 0; i < 5; i++ {
		candidates = append(candidates, post(CategoryAdmin, core.SentimentNeutral, float64(60-i)))
	}

	result := Mix(candidates, 10, SlotMorning)
	negatives := result.Stats.SentimentHistogram[core.SentimentNegative]
	assert.LessOrEqual(t, float64(negatives)/float64(len(result.Posts)), negativeShareThreshold+0.05)
}

func TestMixOrdersHighestScoreFirst(t *testing.T) {
	candidates := []*core.Post{
		post(CategoryNews, core.SentimentNeutral, 50),
		post(CategoryNews, core.SentimentNeutral, 99),
		post(CategoryAdmin, core.SentimentPositive, 70),
	}
	result := Mix(candidates, 3, SlotAfternoon)
	require.NotEmpty(t, result.Posts)
	assert.Equal(t, 99.0, result.Posts[0].AIScore)
}

func TestMixOrderingPrefersCategoryAndSentimentDiversity(t *testing.T) {
	high := post(CategoryNews, core.SentimentNeutral, 100)
	sameCategorySameSentiment := post(CategoryNews, core.SentimentNeutral, 90)
	differentCategory := post(CategoryAdmin, core.SentimentNeutral, 50)

	result := Mix([]*core.Post{high, sameCategorySameSentiment, differentCategory}, 3, SlotAfternoon)
	require.Len(t, result.Posts, 3)
	assert.Equal(t, high, result.Posts[0])
	assert.Equal(t, differentCategory, result.Posts[1], "diversity bonus should beat the plain score gap")
}

func TestStatsDiversityScore(t *testing.T) {
	candidates := []*core.Post{
		post(CategoryNews, core.SentimentNeutral, 90),
		post(CategoryAdmin, core.SentimentNeutral, 80),
	}
	result := Mix(candidates, 2, SlotAfternoon)
	assert.InDelta(t, 1.0, result.Stats.DiversityScore, 0.001)
}

func TestMixEmptyCandidates(t *testing.T) {
	result := Mix(nil, 5, SlotMorning)
	assert.Empty(t, result.Posts)
	assert.Equal(t, 0.0, result.Stats.AverageScore)
}
