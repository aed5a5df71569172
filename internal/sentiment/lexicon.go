// Package sentiment implements the lexicon-based classifier of spec §4.B.
// It deliberately stops short of full NLP (spec.md Non-goals): three
// polarity word sets and four emotion word sets, counted by hit, nothing
// more — the same ceiling the teacher's BiDiSentiment model would have
// overshot, which is why that dependency has no home here (see DESIGN.md).
package sentiment

import (
	"strings"

	"github.com/valstan/setka/internal/core"
)

// Emotions is the four-way emotion vector spec §4.B defines, normalized to
// sum to 1 when any emotion marker occurs.
type Emotions struct {
	Joy     float64
	Sadness float64
	Anger   float64
	Fear    float64
}

// Counts is the raw polarity hit counts behind Result.Score.
type Counts struct {
	Positive int
	Neutral  int
	Negative int
}

// Result is the output of Classify, per spec §4.B.
type Result struct {
	Label    core.SentimentLabel
	Score    float64
	Emotions Emotions
	Counts   Counts
}

// Lexicon is the operator-maintained word-set data behind the classifier
// (spec §9: "the exact set ... is data, not code"). Matching is
// whole-word, case-insensitive, over the same normalized token stream the
// fingerprinter would build its text-full hash from.
type Lexicon struct {
	Positive []string
	Negative []string
	// Neutral words count as the third polarity: a positive or negative
	// label needs strictly more hits than the neutral count as well, and a
	// neutral lead (or any tie) yields the neutral label.
	Neutral []string

	Joy     []string
	Sadness []string
	Anger   []string
	Fear    []string

	positiveSet map[string]struct{}
	negativeSet map[string]struct{}
	neutralSet  map[string]struct{}
	joySet      map[string]struct{}
	sadnessSet  map[string]struct{}
	angerSet    map[string]struct{}
	fearSet     map[string]struct{}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// Compile builds the lookup sets used by Classify. Call it once after
// loading or updating the word lists.
func (l *Lexicon) Compile() {
	l.positiveSet = toSet(l.Positive)
	l.negativeSet = toSet(l.Negative)
	l.neutralSet = toSet(l.Neutral)
	l.joySet = toSet(l.Joy)
	l.sadnessSet = toSet(l.Sadness)
	l.angerSet = toSet(l.Anger)
	l.fearSet = toSet(l.Fear)
}

// DefaultLexicon returns a small built-in Russian/English seed lexicon,
// meant to be replaced by an operator-maintained table in production (spec
// §9 Open Questions).
func DefaultLexicon() *Lexicon {
	l := &Lexicon{
		Positive: []string{
			"хорошо", "отлично", "прекрасно", "рад", "радость", "успех",
			"победа", "спасибо", "молодцы", "красиво", "great", "good",
			"happy", "success", "thanks", "beautiful", "love",
		},
		Negative: []string{
			"плохо", "ужасно", "беда", "авария", "трагедия", "погиб",
			"умер", "проблема", "скандал", "разочарование", "bad",
			"terrible", "disaster", "tragedy", "died", "problem", "angry",
		},
		Neutral: []string{
			"сегодня", "объявление", "расписание", "информация", "сообщает",
			"today", "announcement", "schedule", "information", "reports",
		},
		Joy:     []string{"рад", "радость", "счастье", "happy", "joy", "праздник"},
		Sadness: []string{"грусть", "печаль", "скорбь", "sad", "sorrow", "погиб", "умер"},
		Anger:   []string{"злость", "гнев", "возмущение", "angry", "outrage", "скандал"},
		Fear:    []string{"страх", "паника", "тревога", "fear", "panic", "авария"},
	}
	l.Compile()
	return l
}

// tokenize splits text into lowercase word tokens on anything that is not a
// letter or digit, mirroring the fingerprinter's normalized alphabet.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		case r >= 'а' && r <= 'я', r == 'ё':
			return false
		default:
			return true
		}
	})
	return fields
}

// Classify implements spec §4.B: count lexicon hits across three polarity
// sets and four emotion sets; label by strict-max polarity count (ties go
// neutral); score is 0.5 + (hits_of_label/total_hits)*0.5, capped at 1.0,
// or 0.5/neutral when there are no hits at all.
func (l *Lexicon) Classify(text string) Result {
	tokens := tokenize(text)

	var counts Counts
	var joy, sadness, anger, fear int

	for _, tok := range tokens {
		if _, ok := l.positiveSet[tok]; ok {
			counts.Positive++
		}
		if _, ok := l.negativeSet[tok]; ok {
			counts.Negative++
		}
		if _, ok := l.neutralSet[tok]; ok {
			counts.Neutral++
		}
		if _, ok := l.joySet[tok]; ok {
			joy++
		}
		if _, ok := l.sadnessSet[tok]; ok {
			sadness++
		}
		if _, ok := l.angerSet[tok]; ok {
			anger++
		}
		if _, ok := l.fearSet[tok]; ok {
			fear++
		}
	}

	label, labelHits := classifyLabel(counts)
	total := counts.Positive + counts.Neutral + counts.Negative

	score := 0.5
	if total > 0 {
		score = 0.5 + (float64(labelHits)/float64(total))*0.5
		if score > 1.0 {
			score = 1.0
		}
	}

	return Result{
		Label:    label,
		Score:    score,
		Emotions: normalizeEmotions(joy, sadness, anger, fear),
		Counts:   counts,
	}
}

// classifyLabel picks the polarity with strictly the largest hit count;
// ties (including the all-zero case) resolve to neutral.
func classifyLabel(c Counts) (core.SentimentLabel, int) {
	switch {
	case c.Positive > c.Negative && c.Positive > c.Neutral:
		return core.SentimentPositive, c.Positive
	case c.Negative > c.Positive && c.Negative > c.Neutral:
		return core.SentimentNegative, c.Negative
	default:
		return core.SentimentNeutral, c.Neutral
	}
}

func normalizeEmotions(joy, sadness, anger, fear int) Emotions {
	total := joy + sadness + anger + fear
	if total == 0 {
		return Emotions{}
	}
	f := float64(total)
	return Emotions{
		Joy:     float64(joy) / f,
		Sadness: float64(sadness) / f,
		Anger:   float64(anger) / f,
		Fear:    float64(fear) / f,
	}
}
