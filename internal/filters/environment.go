package filters

import (
	"context"
	"regexp"
	"time"
)

// DuplicateStore answers the dedup lookups StructuralDuplicate,
// TextDuplicateFull, TextDuplicateCore, and MediaDuplicate need. A Store
// implementation backs this against durable storage; tests can fake it.
type DuplicateStore interface {
	LIPExists(ctx context.Context, lip string) (bool, error)
	TextFullExists(ctx context.Context, hash string) (bool, error)
	TextCoreExists(ctx context.Context, hash string) (bool, error)
	MediaIntersects(ctx context.Context, ids []string) (bool, error)
}

// BlacklistStore answers the full owner/author id blacklist and the full
// blacklisted-word set for BlacklistID and BlacklistWord. Both sets are
// cached by the pipeline with a 5-minute TTL (spec §4.E cache rule);
// implementations need not cache themselves.
type BlacklistStore interface {
	BlacklistedIDs(ctx context.Context) ([]int64, error)
	BlacklistedWords(ctx context.Context) ([]string, error)
}

// RegionKeywordStore answers the per-region relevance keyword set used by
// RegionalRelevance.
type RegionKeywordStore interface {
	Keywords(ctx context.Context, regionID int64) ([]string, error)
}

// Config bundles the thresholds and lists every stage needs, populated from
// region configuration and operator-tunable defaults.
type Config struct {
	MaxAgeHours   float64
	FreshBonusMax float64

	MinTextLen int
	MaxTextLen int

	MinViews      int64
	ViewsBonusMax float64

	MinRegionKeywordMatches int
	RegionBonusMax          float64

	// SpamPatterns are matched against post text by SpamPattern.
	SpamPatterns []*regexp.Regexp

	// OnlyMainNewsOwners lists owner ids for which OnlyMainNews requires
	// author == owner (cross-posted items from such owners are rejected).
	OnlyMainNewsOwners map[int64]bool

	// NeighborRegionOwners lists owner ids belonging to a neighboring
	// region; posts from them must carry one of NeighborHashtags.
	NeighborRegionOwners map[int64]bool
	NeighborHashtags     []string

	MinWordsForQuality int

	// CategoryAllow/CategoryBlock gate the Category stage; an empty allow
	// set means "allow unless blocked".
	CategoryAllow map[string]bool
	CategoryBlock map[string]bool
}

// DefaultConfig returns the spec's named defaults (§4.E table and prose).
func DefaultConfig() Config {
	return Config{
		MaxAgeHours:             72,
		FreshBonusMax:           10,
		MinTextLen:              10,
		MaxTextLen:              10000,
		MinViews:                0,
		ViewsBonusMax:           15,
		MinRegionKeywordMatches: 1,
		RegionBonusMax:          20,
		MinWordsForQuality:      3,
	}
}

// Environment is the per-run context handed to every stage: its
// dependencies, config, and the clock used for age computation (injectable
// for deterministic tests).
type Environment struct {
	Duplicates DuplicateStore
	Blacklist  BlacklistStore
	Keywords   RegionKeywordStore
	Config     Config
	Now        func() time.Time

	cache *ttlCache
}

// NewEnvironment wires dependencies with a 5-minute TTL cache in front of
// the store-backed blacklist lookups (ids and words). Region keyword
// lookups are not cached: RegionalRelevance reads them from the keyword
// store on every call.
func NewEnvironment(dup DuplicateStore, bl BlacklistStore, kw RegionKeywordStore, cfg Config) *Environment {
	return &Environment{
		Duplicates: dup,
		Blacklist:  bl,
		Keywords:   kw,
		Config:     cfg,
		Now:        time.Now,
		cache:      newTTLCache(5 * time.Minute),
	}
}

func (e *Environment) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
