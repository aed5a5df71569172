package store

import (
	"sync"
	"time"

	"github.com/valstan/setka/internal/core"
)

type engagementKey struct {
	RegionID int64
	Hour     int
	Weekday  time.Weekday
}

// EngagementStore holds the (region, hour, weekday) moving-average buckets
// of the Engagement Scorer (4.G) outside the Scorer itself. This in-memory
// implementation keeps them only for the life of the process.
type EngagementStore struct {
	mu      sync.Mutex
	buckets map[engagementKey]*core.EngagementSample
}

func NewEngagementStore() *EngagementStore {
	return &EngagementStore{buckets: map[engagementKey]*core.EngagementSample{}}
}

// Record folds one observation into its (region, hour, weekday) bucket.
func (s *EngagementStore) Record(regionID int64, hour int, weekday time.Weekday, value float64, windowDays int, at time.Time) core.EngagementSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := engagementKey{RegionID: regionID, Hour: hour, Weekday: weekday}
	b, ok := s.buckets[key]
	if !ok {
		b = &core.EngagementSample{RegionID: regionID, Hour: hour, Weekday: weekday, WindowDays: windowDays}
		s.buckets[key] = b
	}
	b.SampleCount++
	b.TotalEngage += value
	b.WindowDays = windowDays
	b.LastUpdatedAt = at
	return *b
}

// ByRegion returns every bucket recorded for a region.
func (s *EngagementStore) ByRegion(regionID int64) []core.EngagementSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.EngagementSample
	for k, b := range s.buckets {
		if k.RegionID == regionID {
			out = append(out, *b)
		}
	}
	return out
}
