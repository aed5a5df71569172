package filters

import (
	"context"
	"strings"
	"unicode"

	"github.com/valstan/setka/internal/core"
)

// StageFunc adapts a plain function into a Stage, the way net/http adapts
// a function into a Handler: it is the concrete shape behind the single
// Stage interface for every one of the fifteen checks below.
type StageFunc func(ctx context.Context, post *core.Post, env *Environment) (Verdict, error)

type funcStage struct {
	baseStage
	fn StageFunc
}

func (f funcStage) Check(ctx context.Context, post *core.Post, env *Environment) (Verdict, error) {
	return f.fn(ctx, post, env)
}

func newStage(name string, priority int, kind Kind, fn StageFunc) Stage {
	return funcStage{baseStage{name: name, priority: priority, kind: kind}, fn}
}

// DefaultStages builds the full, fixed fifteen-stage pipeline of spec
// §4.E in priority order (New sorts them regardless).
func DefaultStages() []Stage {
	return []Stage{
		NewStructuralDuplicate(),
		NewDate(),
		NewBlacklistID(),
		NewOnlyMainNews(),
		NewTextLength(),
		NewMinimumViews(),
		NewTextDuplicateFull(),
		NewTextDuplicateCore(),
		NewMediaDuplicate(),
		NewBlacklistWord(),
		NewSpamPattern(),
		NewRegionalRelevance(),
		NewNeighborRegion(),
		NewTextQuality(),
		NewCategory(),
	}
}

// NewStructuralDuplicate rejects a post whose LIP already exists in store
// (priority 10).
func NewStructuralDuplicate() Stage {
	return newStage("StructuralDuplicate", 10, KindStore, func(ctx context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if env.Duplicates == nil || post.Fingerprints.LIP == "" {
			return Pass(0), nil
		}
		exists, err := env.Duplicates.LIPExists(ctx, post.Fingerprints.LIP)
		if err != nil {
			return Verdict{}, err
		}
		if exists {
			return Reject("duplicate_lip"), nil
		}
		return Pass(0), nil
	})
}

// NewDate rejects posts older than Config.MaxAgeHours and rewards fresher
// posts with a bonus scaling down to zero at the age limit (priority 11).
func NewDate() Stage {
	return newStage("Date", 11, KindPure, func(_ context.Context, post *core.Post, env *Environment) (Verdict, error) {
		maxAge := env.Config.MaxAgeHours
		if maxAge <= 0 {
			maxAge = 72
		}
		ageHours := env.now().Sub(post.PublishedAt).Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		if ageHours > maxAge {
			return Reject("too_old"), nil
		}
		freshness := clamp01(1 - ageHours/maxAge)
		return Pass(env.Config.FreshBonusMax * freshness), nil
	})
}

// NewBlacklistID rejects a post whose owner or author id is in the
// (cached) blacklist (priority 12).
func NewBlacklistID() Stage {
	return newStage("BlacklistID", 12, KindStore, func(ctx context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if env.Blacklist == nil {
			return Pass(0), nil
		}
		ids, err := env.blacklistedIDs(ctx)
		if err != nil {
			return Verdict{}, err
		}
		if idIn(ids, post.ExternalOwnerID) || idIn(ids, post.ExternalAuthorID) {
			return Reject("blacklisted_id"), nil
		}
		return Pass(0), nil
	})
}

// NewOnlyMainNews rejects cross-posted items (author != owner) from
// owners configured to allow only their own original posts (priority 13).
func NewOnlyMainNews() Stage {
	return newStage("OnlyMainNews", 13, KindPure, func(_ context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if !env.Config.OnlyMainNewsOwners[post.ExternalOwnerID] {
			return Pass(0), nil
		}
		if post.ExternalAuthorID != 0 && post.ExternalAuthorID != post.ExternalOwnerID {
			return Reject("cross_posted"), nil
		}
		return Pass(0), nil
	})
}

// NewTextLength rejects posts with neither text nor media, and posts
// whose text falls outside [Config.MinTextLen, Config.MaxTextLen]
// (priority 30).
func NewTextLength() Stage {
	return newStage("TextLength", 30, KindPure, func(_ context.Context, post *core.Post, env *Environment) (Verdict, error) {
		text := strings.TrimSpace(post.Text)
		if text == "" && len(post.Attachments) == 0 {
			return Reject("no_text_no_media"), nil
		}
		runeLen := len([]rune(text))
		if runeLen == 0 {
			return Pass(0), nil
		}
		minLen, maxLen := env.Config.MinTextLen, env.Config.MaxTextLen
		if minLen == 0 {
			minLen = 10
		}
		if maxLen == 0 {
			maxLen = 10000
		}
		if runeLen < minLen || runeLen > maxLen {
			return Reject("text_length"), nil
		}
		return Pass(0), nil
	})
}

// NewMinimumViews rejects posts below Config.MinViews and rewards popular
// posts with a bonus that saturates at ten times the minimum plus 1000
// views (priority 31).
func NewMinimumViews() Stage {
	return newStage("MinimumViews", 31, KindPure, func(_ context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if post.Views < env.Config.MinViews {
			return Reject("low_views"), nil
		}
		popularAt := env.Config.MinViews*10 + 1000
		ratio := clamp01(float64(post.Views) / float64(popularAt))
		return Pass(env.Config.ViewsBonusMax * ratio), nil
	})
}

// NewTextDuplicateFull rejects a post whose text-full fingerprint matches
// any other stored post (priority 40).
func NewTextDuplicateFull() Stage {
	return newStage("TextDuplicateFull", 40, KindStore, func(ctx context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if env.Duplicates == nil || post.Fingerprints.TextFull == "" {
			return Pass(0), nil
		}
		exists, err := env.Duplicates.TextFullExists(ctx, post.Fingerprints.TextFull)
		if err != nil {
			return Verdict{}, err
		}
		if exists {
			return Reject("duplicate_text_full"), nil
		}
		return Pass(0), nil
	})
}

// NewTextDuplicateCore rejects a post whose text-core fingerprint matches
// any other stored post (priority 41).
func NewTextDuplicateCore() Stage {
	return newStage("TextDuplicateCore", 41, KindStore, func(ctx context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if env.Duplicates == nil || post.Fingerprints.TextCore == "" {
			return Pass(0), nil
		}
		exists, err := env.Duplicates.TextCoreExists(ctx, post.Fingerprints.TextCore)
		if err != nil {
			return Verdict{}, err
		}
		if exists {
			return Reject("duplicate_text_core"), nil
		}
		return Pass(0), nil
	})
}

// NewMediaDuplicate rejects a post whose media ids intersect any other
// stored post's media (priority 42).
func NewMediaDuplicate() Stage {
	return newStage("MediaDuplicate", 42, KindStore, func(ctx context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if env.Duplicates == nil || len(post.Fingerprints.Media) == 0 {
			return Pass(0), nil
		}
		exists, err := env.Duplicates.MediaIntersects(ctx, post.Fingerprints.Media)
		if err != nil {
			return Verdict{}, err
		}
		if exists {
			return Reject("duplicate_media"), nil
		}
		return Pass(0), nil
	})
}

// NewBlacklistWord rejects a post whose text contains any (cached)
// blacklisted token (priority 50).
func NewBlacklistWord() Stage {
	return newStage("BlacklistWord", 50, KindStore, func(ctx context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if env.Blacklist == nil {
			return Pass(0), nil
		}
		words, err := env.blacklistedWords(ctx)
		if err != nil {
			return Verdict{}, err
		}
		lower := strings.ToLower(post.Text)
		for _, w := range words {
			if w == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(w)) {
				return Reject("blacklisted_word"), nil
			}
		}
		return Pass(0), nil
	})
}

// NewSpamPattern rejects a post matching any configured spam regex
// (priority 51).
func NewSpamPattern() Stage {
	return newStage("SpamPattern", 51, KindPure, func(_ context.Context, post *core.Post, env *Environment) (Verdict, error) {
		for _, re := range env.Config.SpamPatterns {
			if re.MatchString(post.Text) {
				return Reject("spam_pattern"), nil
			}
		}
		return Pass(0), nil
	})
}

// NewRegionalRelevance rejects a post with fewer than
// Config.MinRegionKeywordMatches keyword hits for its region, and rewards
// strongly relevant posts with a bonus (priority 60).
func NewRegionalRelevance() Stage {
	return newStage("RegionalRelevance", 60, KindStore, func(ctx context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if env.Keywords == nil {
			return Pass(0), nil
		}
		keywords, err := env.Keywords.Keywords(ctx, post.RegionID)
		if err != nil {
			return Verdict{}, err
		}
		required := env.Config.MinRegionKeywordMatches
		if required <= 0 {
			required = 1
		}
		count := countMatches(post.Text, keywords)
		if count < required {
			return Reject("insufficient_region_relevance"), nil
		}
		ratio := clamp01(float64(count) / float64(required*3))
		return Pass(env.Config.RegionBonusMax * ratio), nil
	})
}

// NewNeighborRegion rejects a post from a configured neighboring-region
// owner unless its text carries one of the neighbor news hashtags
// (priority 61).
func NewNeighborRegion() Stage {
	return newStage("NeighborRegion", 61, KindPure, func(_ context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if !env.Config.NeighborRegionOwners[post.ExternalOwnerID] {
			return Pass(0), nil
		}
		lower := strings.ToLower(post.Text)
		for _, tag := range env.Config.NeighborHashtags {
			if tag != "" && strings.Contains(lower, strings.ToLower(tag)) {
				return Pass(0), nil
			}
		}
		return Reject("neighbor_missing_hashtag"), nil
	})
}

// NewTextQuality rejects posts with too few words or with a run-on glut
// of punctuation/emoji relative to letters (priority 70).
func NewTextQuality() Stage {
	return newStage("TextQuality", 70, KindPure, func(_ context.Context, post *core.Post, env *Environment) (Verdict, error) {
		words := strings.Fields(post.Text)
		minWords := env.Config.MinWordsForQuality
		if minWords <= 0 {
			minWords = 3
		}
		if len(words) < minWords {
			return Reject("low_word_count"), nil
		}
		if punctuationOverloadRatio(post.Text) > 0.5 {
			return Reject("punctuation_overload"), nil
		}
		return Pass(0), nil
	})
}

// NewCategory enforces the allow-list / block-list for a post's assigned
// category against the target digest's configuration (priority 71).
func NewCategory() Stage {
	return newStage("Category", 71, KindPure, func(_ context.Context, post *core.Post, env *Environment) (Verdict, error) {
		if env.Config.CategoryBlock[post.AICategory] {
			return Reject("category_blocked"), nil
		}
		if len(env.Config.CategoryAllow) > 0 && !env.Config.CategoryAllow[post.AICategory] {
			return Reject("category_not_allowed"), nil
		}
		return Pass(0), nil
	})
}

func idIn(ids []int64, id int64) bool {
	if id == 0 {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func countMatches(text string, keywords []string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			count++
		}
	}
	return count
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// punctuationOverloadRatio returns the share of non-letter, non-digit,
// non-space runes in text, the signal NewTextQuality uses to catch
// emoji/punctuation spam.
func punctuationOverloadRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	noisy := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		noisy++
	}
	return float64(noisy) / float64(len(runes))
}
