package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valstan/setka/internal/core"
)

// PostStore holds Post entities indexed by id and by every fingerprint
// family the Filter Pipeline's DuplicateStore dedup stages query (spec
// §4.A/§4.E). Insert is an atomic check-and-insert under a single mutex:
// two concurrent scans can never both accept a post with the same
// fingerprint_lip (spec invariant #1, §4.K).
type PostStore struct {
	mu         sync.Mutex
	byID       map[int64]*core.Post
	byLIP      map[string]int64
	textFull   map[string]bool
	textCore   map[string]bool
	mediaIndex map[string]int64
	nextID     int64
}

func NewPostStore() *PostStore {
	return &PostStore{
		byID:       map[int64]*core.Post{},
		byLIP:      map[string]int64{},
		textFull:   map[string]bool{},
		textCore:   map[string]bool{},
		mediaIndex: map[string]int64{},
	}
}

// LIPExists implements filters.DuplicateStore.
func (s *PostStore) LIPExists(_ context.Context, lip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byLIP[lip]
	return ok, nil
}

// TextFullExists implements filters.DuplicateStore.
func (s *PostStore) TextFullExists(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textFull[hash], nil
}

// TextCoreExists implements filters.DuplicateStore.
func (s *PostStore) TextCoreExists(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textCore[hash], nil
}

// MediaIntersects implements filters.DuplicateStore: true if any of ids
// was already attached to a previously stored post, accepted or rejected.
func (s *PostStore) MediaIntersects(_ context.Context, ids []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.mediaIndex[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Create stores a post the Filter Pipeline has already run on, accepted or
// rejected, indexing its fingerprints so future duplicate lookups see it. Returns
// an error if its LIP was concurrently admitted first.
func (s *PostStore) Create(_ context.Context, p core.Post) (core.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byLIP[p.Fingerprints.LIP]; exists {
		return core.Post{}, core.NewError(core.KindStore, "post with lip %q already exists", p.Fingerprints.LIP)
	}

	s.nextID++
	p.ID = s.nextID
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now

	cp := p
	s.byID[p.ID] = &cp
	s.byLIP[p.Fingerprints.LIP] = p.ID
	if p.Fingerprints.TextFull != "" {
		s.textFull[p.Fingerprints.TextFull] = true
	}
	if p.Fingerprints.TextCore != "" {
		s.textCore[p.Fingerprints.TextCore] = true
	}
	for _, m := range p.Fingerprints.Media {
		s.mediaIndex[m] = p.ID
	}
	return cp, nil
}

// UpsertStats refreshes the engagement counters of an existing post
// identified by LIP without re-running it through the Filter Pipeline —
// the idempotent-rescan rule of spec §4.K/§6: a post whose LIP is already
// known is only ever re-observed, never re-filtered.
func (s *PostStore) UpsertStats(_ context.Context, lip string, views, likes, reposts, comments int64) (core.Post, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byLIP[lip]
	if !ok {
		return core.Post{}, false, nil
	}
	p := s.byID[id]
	p.Views, p.Likes, p.Reposts, p.Comments = views, likes, reposts, comments
	p.UpdatedAt = time.Now()
	return *p, true, nil
}

func (s *PostStore) Get(_ context.Context, id int64) (core.Post, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return core.Post{}, false, nil
	}
	return *p, true, nil
}

// UpdateStatus transitions a post's status (spec invariant #2: once
// terminal, never reverts).
func (s *PostStore) UpdateStatus(_ context.Context, id int64, status core.PostStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return core.NewError(core.KindStore, "post %d not found", id)
	}
	if p.Status.IsTerminal() {
		return core.NewError(core.KindValidation, "post %d status %q is terminal", id, p.Status)
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

// ByStatus lists every post in the given region with the given status,
// the candidate pool the Content Mixer draws from.
func (s *PostStore) ByStatus(_ context.Context, regionID int64, status core.PostStatus) ([]core.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Post
	for _, p := range s.byID {
		if p.RegionID == regionID && p.Status == status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
