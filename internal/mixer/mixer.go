// Package mixer assembles a digest from a pool of accepted candidate posts
// (spec §4.F): it balances the category mix for a time slot, caps the
// share of negative-sentiment posts, and orders the result for maximum
// adjacent-post diversity.
package mixer

import (
	"sort"

	"github.com/valstan/setka/internal/core"
)

// TimeSlot is one of the three publication windows the category mix table
// is keyed by.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
)

// The five digest categories the mixer balances against. A candidate's
// core.Post.AICategory is expected to already carry one of these labels by
// the time it reaches the mixer (classification into this axis, as
// opposed to the community taxonomy of §3, happens upstream).
const (
	CategoryNews         = "novost"
	CategoryAdmin        = "admin"
	CategoryCulture      = "kultura"
	CategorySport        = "sport"
	CategoryNeighborhood = "sosed"
)

// categoryMixBySlot is the fixed target fraction table of spec §4.F.
var categoryMixBySlot = map[TimeSlot]map[string]float64{
	SlotMorning: {
		CategoryNews: 0.40, CategoryAdmin: 0.20, CategoryCulture: 0.15,
		CategorySport: 0.15, CategoryNeighborhood: 0.10,
	},
	SlotAfternoon: {
		CategoryNews: 0.35, CategoryAdmin: 0.15, CategoryCulture: 0.20,
		CategorySport: 0.20, CategoryNeighborhood: 0.10,
	},
	SlotEvening: {
		CategoryNews: 0.30, CategoryAdmin: 0.10, CategoryCulture: 0.25,
		CategorySport: 0.25, CategoryNeighborhood: 0.10,
	},
}

// negativeShareThreshold and negativeKeepFraction implement the sentiment
// rebalancing rule of spec §4.F.
const (
	negativeShareThreshold = 0.30
	negativeKeepFraction   = 0.20
)

// Stats is the digest statistics record spec §4.F requires alongside the
// selected posts.
type Stats struct {
	CategoryHistogram  map[string]int
	SentimentHistogram map[core.SentimentLabel]int
	AverageScore       float64
	DiversityScore     float64
}

// Result is the Mixer's output: the ordered posts for the digest plus
// their statistics.
type Result struct {
	Posts []*core.Post
	Stats Stats
}

// Mix selects up to n posts from candidates for slot and orders them for
// adjacent diversity.
func Mix(candidates []*core.Post, n int, slot TimeSlot) Result {
	if n <= 0 || len(candidates) == 0 {
		return Result{Stats: Stats{CategoryHistogram: map[string]int{}, SentimentHistogram: map[core.SentimentLabel]int{}}}
	}

	selected := selectByCategoryMix(candidates, n, slot)
	selected = rebalanceSentiment(selected, candidates, n)
	ordered := orderByDiversity(selected)

	return Result{Posts: ordered, Stats: computeStats(ordered)}
}

// selectByCategoryMix picks floor(fraction*n) top-scoring posts per
// category, then fills any remaining slots from the highest-scoring
// leftover candidates regardless of category (spec: "remainder filled by
// descending score").
func selectByCategoryMix(candidates []*core.Post, n int, slot TimeSlot) []*core.Post {
	mix, ok := categoryMixBySlot[slot]
	if !ok {
		mix = categoryMixBySlot[SlotAfternoon]
	}

	byCategory := make(map[string][]*core.Post)
	for _, p := range candidates {
		byCategory[p.AICategory] = append(byCategory[p.AICategory], p)
	}
	for cat := range byCategory {
		sortByScoreDesc(byCategory[cat])
	}

	selected := make([]*core.Post, 0, n)
	used := make(map[*core.Post]bool)

	for cat, fraction := range mix {
		target := int(fraction * float64(n))
		pool := byCategory[cat]
		for i := 0; i < target && i < len(pool); i++ {
			selected = append(selected, pool[i])
			used[pool[i]] = true
		}
	}

	if len(selected) < n {
		remaining := make([]*core.Post, 0, len(candidates))
		for _, p := range candidates {
			if !used[p] {
				remaining = append(remaining, p)
			}
		}
		sortByScoreDesc(remaining)
		for _, p := range remaining {
			if len(selected) >= n {
				break
			}
			selected = append(selected, p)
			used[p] = true
		}
	}
	return selected
}

// rebalanceSentiment caps the negative share of the selected set at the
// spec's 30% threshold by keeping only the top 20% (by score) of the
// negative posts and filling the vacated slots from the best unselected
// positive posts, then neutral.
func rebalanceSentiment(selected, allCandidates []*core.Post, n int) []*core.Post {
	var negatives, others []*core.Post
	for _, p := range selected {
		if p.SentimentLabel == core.SentimentNegative {
			negatives = append(negatives, p)
		} else {
			others = append(others, p)
		}
	}
	if len(selected) == 0 || float64(len(negatives))/float64(len(selected)) <= negativeShareThreshold {
		return selected
	}

	sortByScoreDesc(negatives)
	keep := int(negativeKeepFraction * float64(len(negatives)))
	if keep < 1 && len(negatives) > 0 {
		keep = 1
	}
	kept := negatives[:keep]

	usedSet := make(map[*core.Post]bool, len(others)+len(kept))
	for _, p := range others {
		usedSet[p] = true
	}
	for _, p := range kept {
		usedSet[p] = true
	}

	result := append([]*core.Post{}, others...)
	result = append(result, kept...)

	fillFrom := func(label core.SentimentLabel) {
		var pool []*core.Post
		for _, p := range allCandidates {
			if usedSet[p] || p.SentimentLabel != label {
				continue
			}
			pool = append(pool, p)
		}
		sortByScoreDesc(pool)
		for _, p := range pool {
			if len(result) >= n {
				return
			}
			result = append(result, p)
			usedSet[p] = true
		}
	}
	fillFrom(core.SentimentPositive)
	fillFrom(core.SentimentNeutral)

	return result
}

// orderByDiversity emits the single highest-score post first, then
// greedily picks the remaining candidate maximizing the diversity score
// of spec §4.F: +2 for a different category, +1 for a different
// sentiment, +ai_score/100 as a tie-breaker.
func orderByDiversity(selected []*core.Post) []*core.Post {
	if len(selected) == 0 {
		return nil
	}
	pool := append([]*core.Post{}, selected...)
	sortByScoreDesc(pool)

	ordered := []*core.Post{pool[0]}
	remaining := pool[1:]

	for len(remaining) > 0 {
		prev := ordered[len(ordered)-1]
		bestIdx := 0
		bestScore := diversityScore(prev, remaining[0])
		for i := 1; i < len(remaining); i++ {
			s := diversityScore(prev, remaining[i])
			if s > bestScore {
				bestScore = s
				bestIdx = i
			}
		}
		ordered = append(ordered, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return ordered
}

func diversityScore(prev, candidate *core.Post) float64 {
	score := candidate.AIScore / 100
	if candidate.AICategory != prev.AICategory {
		score += 2
	}
	if candidate.SentimentLabel != prev.SentimentLabel {
		score += 1
	}
	return score
}

func computeStats(posts []*core.Post) Stats {
	stats := Stats{
		CategoryHistogram:  map[string]int{},
		SentimentHistogram: map[core.SentimentLabel]int{},
	}
	if len(posts) == 0 {
		return stats
	}
	distinctCategories := map[string]bool{}
	var total float64
	for _, p := range posts {
		stats.CategoryHistogram[p.AICategory]++
		stats.SentimentHistogram[p.SentimentLabel]++
		distinctCategories[p.AICategory] = true
		total += p.AIScore
	}
	stats.AverageScore = total / float64(len(posts))
	stats.DiversityScore = float64(len(distinctCategories)) / float64(len(posts))
	return stats
}

func sortByScoreDesc(posts []*core.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].AIScore > posts[j].AIScore
	})
}
