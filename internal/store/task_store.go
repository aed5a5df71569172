package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valstan/setka/internal/core"
)

// TaskStore holds CarouselTask entities.
type TaskStore struct {
	mu     sync.Mutex
	byID   map[int64]*core.CarouselTask
	nextID int64
}

func NewTaskStore() *TaskStore {
	return &TaskStore{byID: map[int64]*core.CarouselTask{}}
}

func (s *TaskStore) Create(_ context.Context, t core.CarouselTask) (core.CarouselTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	if t.QueuedAt.IsZero() {
		t.QueuedAt = time.Now()
	}
	cp := t
	s.byID[t.ID] = &cp
	return cp, nil
}

func (s *TaskStore) Get(_ context.Context, id int64) (core.CarouselTask, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return core.CarouselTask{}, false, nil
	}
	return *t, true, nil
}

func (s *TaskStore) Update(_ context.Context, t core.CarouselTask) (core.CarouselTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[t.ID]; !ok {
		return core.CarouselTask{}, core.NewError(core.KindStore, "task %d not found", t.ID)
	}
	cp := t
	s.byID[t.ID] = &cp
	return cp, nil
}

// Delete permanently removes a task (spec §6: deletes are permanent for
// tasks).
func (s *TaskStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *TaskStore) ByRegion(_ context.Context, regionID int64) ([]core.CarouselTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CarouselTask
	for _, t := range s.byID {
		if t.RegionID == regionID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuedAt.Before(out[j].QueuedAt) })
	return out, nil
}

func (s *TaskStore) List(context.Context) ([]core.CarouselTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CarouselTask, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
