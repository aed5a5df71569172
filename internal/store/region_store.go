package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valstan/setka/internal/core"
)

// RegionStore holds Region entities, keyed by id with a unique-code index.
type RegionStore struct {
	mu     sync.RWMutex
	byID   map[int64]*core.Region
	byCode map[string]int64
	nextID int64
}

func NewRegionStore() *RegionStore {
	return &RegionStore{byID: map[int64]*core.Region{}, byCode: map[string]int64{}}
}

// Create inserts a new Region, rejecting a duplicate code (spec §6: code
// unique).
func (s *RegionStore) Create(_ context.Context, r core.Region) (core.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[r.Code]; exists {
		return core.Region{}, core.NewError(core.KindValidation, "region code %q already exists", r.Code)
	}
	s.nextID++
	r.ID = s.nextID
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := r
	s.byID[r.ID] = &cp
	s.byCode[r.Code] = r.ID
	return cp, nil
}

func (s *RegionStore) Get(_ context.Context, id int64) (core.Region, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return core.Region{}, false, nil
	}
	return *r, true, nil
}

// Update replaces a Region's mutable fields, keeping the code index in sync.
func (s *RegionStore) Update(_ context.Context, r core.Region) (core.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[r.ID]
	if !ok {
		return core.Region{}, core.NewError(core.KindStore, "region %d not found", r.ID)
	}
	if existing.Code != r.Code {
		delete(s.byCode, existing.Code)
		s.byCode[r.Code] = r.ID
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()
	cp := r
	s.byID[r.ID] = &cp
	return cp, nil
}

// Delete removes a Region. Cascading to its communities and posts (spec
// §6) is the caller's responsibility, coordinating across stores.
func (s *RegionStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byCode, r.Code)
	delete(s.byID, id)
	return nil
}

func (s *RegionStore) List(context.Context) ([]core.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Region, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ActiveRegions implements the subset of dispatch.Directory this store
// answers: every Region with IsActive set.
func (s *RegionStore) ActiveRegions(context.Context) ([]core.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Region, 0, len(s.byID))
	for _, r := range s.byID {
		if r.IsActive {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
