package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valstan/setka/internal/core"
)

// CredentialStore holds Credential entities, keyed by id with a
// unique-name index.
type CredentialStore struct {
	mu     sync.RWMutex
	byID   map[int64]*core.Credential
	byName map[string]int64
	nextID int64
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{byID: map[int64]*core.Credential{}, byName: map[string]int64{}}
}

func (s *CredentialStore) Create(_ context.Context, c core.Credential) (core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[c.Name]; exists {
		return core.Credential{}, core.NewError(core.KindValidation, "credential name %q already exists", c.Name)
	}
	s.nextID++
	c.ID = s.nextID
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := c
	s.byID[c.ID] = &cp
	s.byName[c.Name] = c.ID
	return cp, nil
}

func (s *CredentialStore) Get(_ context.Context, id int64) (core.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return core.Credential{}, false, nil
	}
	return *c, true, nil
}

func (s *CredentialStore) Update(_ context.Context, c core.Credential) (core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[c.ID]
	if !ok {
		return core.Credential{}, core.NewError(core.KindStore, "credential %d not found", c.ID)
	}
	if existing.Name != c.Name {
		delete(s.byName, existing.Name)
		s.byName[c.Name] = c.ID
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	cp := c
	s.byID[c.ID] = &cp
	return cp, nil
}

func (s *CredentialStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byName, c.Name)
	delete(s.byID, id)
	return nil
}

func (s *CredentialStore) List(context.Context) ([]core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Credential, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Eligible returns every credential the Carousel Scheduler may select
// (spec §3: is_active and status=valid).
func (s *CredentialStore) Eligible(context.Context) ([]core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Credential, 0, len(s.byID))
	for _, c := range s.byID {
		if c.Eligible() {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
