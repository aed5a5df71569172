package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valstan/setka/internal/core"
)

// DigestStore holds Digest entities, each an ordered, immutable-once-
// scheduled set of posts (spec §3).
type DigestStore struct {
	mu     sync.Mutex
	byID   map[int64]*core.Digest
	nextID int64
}

func NewDigestStore() *DigestStore {
	return &DigestStore{byID: map[int64]*core.Digest{}}
}

func (s *DigestStore) Create(_ context.Context, d core.Digest) (core.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	d.ID = s.nextID
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	cp := d
	s.byID[d.ID] = &cp
	return cp, nil
}

func (s *DigestStore) Get(_ context.Context, id int64) (core.Digest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return core.Digest{}, false, nil
	}
	return *d, true, nil
}

// Cancel marks a scheduled digest cancelled; its post ordering remains
// immutable (spec §3) so the record is kept, not deleted.
func (s *DigestStore) Cancel(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return core.NewError(core.KindStore, "digest %d not found", id)
	}
	d.Cancelled = true
	return nil
}

func (s *DigestStore) ByRegion(_ context.Context, regionID int64) ([]core.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Digest
	for _, d := range s.byID {
		if d.RegionID == regionID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *DigestStore) List(context.Context) ([]core.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Digest, 0, len(s.byID))
	for _, d := range s.byID {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
