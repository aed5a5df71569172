package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valstan/setka/internal/core"
)

// CommunityStore holds Community entities, one per (region, external_id).
type CommunityStore struct {
	mu     sync.RWMutex
	byID   map[int64]*core.Community
	nextID int64
}

func NewCommunityStore() *CommunityStore {
	return &CommunityStore{byID: map[int64]*core.Community{}}
}

func (s *CommunityStore) Create(_ context.Context, c core.Community) (core.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := c
	s.byID[c.ID] = &cp
	return cp, nil
}

func (s *CommunityStore) Get(_ context.Context, id int64) (core.Community, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return core.Community{}, false, nil
	}
	return *c, true, nil
}

func (s *CommunityStore) Update(_ context.Context, c core.Community) (core.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[c.ID]
	if !ok {
		return core.Community{}, core.NewError(core.KindStore, "community %d not found", c.ID)
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	cp := c
	s.byID[c.ID] = &cp
	return cp, nil
}

// Delete permanently removes a community, cascading nothing (spec §6).
func (s *CommunityStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *CommunityStore) ByRegion(_ context.Context, regionID int64) ([]core.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Community
	for _, c := range s.byID {
		if c.RegionID == regionID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *CommunityStore) List(context.Context) ([]core.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Community, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
