package filters

import (
	"context"
	"sync"
	"time"
)

// ttlCache caches the small number of named lists the pipeline re-fetches
// on every post: the blacklisted-id set and the blacklisted-word set
// (spec §4.E: "cached with a 5-minute TTL; entries are invalidated on
// write. Cache miss on the first lookup is not an error.").
type ttlCache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	entries map[string]cacheEntry
}

type cacheEntry struct {
	ids       []int64
	words     []string
	expiresAt time.Time
}

const (
	blacklistIDsCacheKey   = "blacklisted_ids"
	blacklistWordsCacheKey = "blacklisted_words"
)

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry)}
}

func (c *ttlCache) getWords(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.clock().After(e.expiresAt) {
		return nil, false
	}
	return e.words, true
}

func (c *ttlCache) setWords(key string, words []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{words: words, expiresAt: c.clock().Add(c.ttl)}
}

func (c *ttlCache) getIDs(key string) ([]int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.clock().After(e.expiresAt) {
		return nil, false
	}
	return e.ids, true
}

func (c *ttlCache) setIDs(key string, ids []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{ids: ids, expiresAt: c.clock().Add(c.ttl)}
}

// invalidate drops a key immediately, used whenever the caller learns the
// underlying blacklist changed.
func (c *ttlCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *ttlCache) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// InvalidateBlacklist drops both cached blacklist sets so the next
// BlacklistID/BlacklistWord check re-fetches from the store.
func (e *Environment) InvalidateBlacklist() {
	e.cache.invalidate(blacklistIDsCacheKey)
	e.cache.invalidate(blacklistWordsCacheKey)
}

func (e *Environment) blacklistedIDs(ctx context.Context) ([]int64, error) {
	if ids, ok := e.cache.getIDs(blacklistIDsCacheKey); ok {
		return ids, nil
	}
	ids, err := e.Blacklist.BlacklistedIDs(ctx)
	if err != nil {
		return nil, err
	}
	e.cache.setIDs(blacklistIDsCacheKey, ids)
	return ids, nil
}

func (e *Environment) blacklistedWords(ctx context.Context) ([]string, error) {
	if words, ok := e.cache.getWords(blacklistWordsCacheKey); ok {
		return words, nil
	}
	words, err := e.Blacklist.BlacklistedWords(ctx)
	if err != nil {
		return nil, err
	}
	e.cache.setWords(blacklistWordsCacheKey, words)
	return words, nil
}
