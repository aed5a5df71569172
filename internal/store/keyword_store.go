package store

import (
	"context"
	"sync"
)

// KeywordStore holds the per-region relevance keyword set the
// RegionalRelevance stage checks (spec §4.E). It implements
// filters.RegionKeywordStore directly.
type KeywordStore struct {
	mu       sync.RWMutex
	byRegion map[int64][]string
}

func NewKeywordStore() *KeywordStore {
	return &KeywordStore{byRegion: map[int64][]string{}}
}

// SetKeywords replaces the keyword set for a region.
func (s *KeywordStore) SetKeywords(regionID int64, keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(keywords))
	copy(cp, keywords)
	s.byRegion[regionID] = cp
}

// Keywords implements filters.RegionKeywordStore.
func (s *KeywordStore) Keywords(_ context.Context, regionID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byRegion[regionID], nil
}
