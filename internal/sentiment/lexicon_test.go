package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valstan/setka/internal/core"
)

func TestClassifyPositive(t *testing.T) {
	l := DefaultLexicon()
	r := l.Classify("Отлично! Большой успех, все рады")
	assert.Equal(t, core.SentimentPositive, r.Label)
	assert.Greater(t, r.Score, 0.5)
}

func TestClassifyNegative(t *testing.T) {
	l := DefaultLexicon()
	r := l.Classify("Ужасная трагедия, в аварии погиб человек")
	assert.Equal(t, core.SentimentNegative, r.Label)
	assert.Greater(t, r.Score, 0.5)
}

func TestClassifyNoHitsIsNeutralHalf(t *testing.T) {
	l := DefaultLexicon()
	r := l.Classify("the quick brown fox jumps over the lazy dog")
	assert.Equal(t, core.SentimentNeutral, r.Label)
	assert.Equal(t, 0.5, r.Score)
	assert.Equal(t, Counts{}, r.Counts)
}

func TestClassifyTieResolvesNeutral(t *testing.T) {
	l := &Lexicon{Positive: []string{"good"}, Negative: []string{"bad"}}
	l.Compile()
	r := l.Classify("good bad")
	assert.Equal(t, core.SentimentNeutral, r.Label)
}

func TestEmotionsNormalizeToOne(t *testing.T) {
	l := DefaultLexicon()
	r := l.Classify("рад рад грусть страх")
	sum := r.Emotions.Joy + r.Emotions.Sadness + r.Emotions.Anger + r.Emotions.Fear
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestEmotionsZeroWhenNoMarkers(t *testing.T) {
	l := DefaultLexicon()
	r := l.Classify("the quick brown fox")
	assert.Equal(t, Emotions{}, r.Emotions)
}
