// Package carousel implements the single logical scheduler of spec §4.H:
// deterministic region/credential pairing, daily frequency self-tuning,
// and the CarouselTask state machine.
package carousel

import (
	"sort"
	"time"

	"github.com/valstan/setka/internal/core"
)

// Defaults from spec §4.H.
const (
	DefaultMinIntervalPerRegion = 60 * time.Minute
	DefaultMaxConcurrentScans   = 2

	minIntervalFloor = 15 * time.Minute
	minIntervalCap   = 240 * time.Minute

	frequencyTuneFactor = 1.25
	lowPostsPerScan     = 5
	highPostsPerScan    = 30
)

// TokenInvalidReason is the Fail reason that marks a task's bound
// credential invalid (spec §4.H: "A credential whose task fails with
// 'token invalid' is marked validation_status=invalid").
const TokenInvalidReason = "token invalid"

// Selection is one (region, credential) pairing the scheduler hands to the
// Work Dispatcher.
type Selection struct {
	Region     core.Region
	Credential core.Credential
}

// Scheduler holds the mutable scheduling state: when each region was last
// scanned and which regions/credentials are currently in flight. A single
// logical instance is shared process-wide (spec §5).
type Scheduler struct {
	minInterval        time.Duration
	maxConcurrentScans int
	now                func() time.Time

	lastScanAt         map[int64]time.Time
	runningRegions     map[int64]bool
	runningCredentials map[int64]bool
}

// New builds a Scheduler with the given tunables.
func New(minInterval time.Duration, maxConcurrentScans int) *Scheduler {
	if minInterval <= 0 {
		minInterval = DefaultMinIntervalPerRegion
	}
	if maxConcurrentScans <= 0 {
		maxConcurrentScans = DefaultMaxConcurrentScans
	}
	return &Scheduler{
		minInterval:        minInterval,
		maxConcurrentScans: maxConcurrentScans,
		now:                time.Now,
		lastScanAt:         make(map[int64]time.Time),
		runningRegions:     make(map[int64]bool),
		runningCredentials: make(map[int64]bool),
	}
}

// MinInterval returns the current per-region minimum interval, which
// AdjustFrequency may have tuned away from its default.
func (s *Scheduler) MinInterval() time.Duration { return s.minInterval }

// MaxConcurrentScans bounds the Work Dispatcher's worker pool; the
// Scheduler itself does not enforce it (spec §5: that is the pool's job).
func (s *Scheduler) MaxConcurrentScans() int { return s.maxConcurrentScans }

// Select runs the deterministic selection rule of spec §4.H and, if a
// pairing is found, marks both the region and credential as running so a
// concurrent Select call will not reselect them.
func (s *Scheduler) Select(regions []core.Region, credentials []core.Credential) (Selection, bool) {
	now := s.now()

	candidates := make([]core.Region, 0, len(regions))
	for _, r := range regions {
		if !r.IsActive || s.runningRegions[r.ID] {
			continue
		}
		if now.Sub(s.lastScanAt[r.ID]) >= s.minInterval {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return Selection{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := s.lastScanAt[candidates[i].ID], s.lastScanAt[candidates[j].ID]
		if !li.Equal(lj) {
			return li.Before(lj)
		}
		return candidates[i].Code < candidates[j].Code
	})
	region := candidates[0]

	var chosen *core.Credential
	for i := range credentials {
		c := &credentials[i]
		if !c.Eligible() || s.runningCredentials[c.ID] {
			continue
		}
		if chosen == nil || lastUsed(c).Before(lastUsed(chosen)) {
			chosen = c
		}
	}
	if chosen == nil {
		return Selection{}, false
	}

	s.runningRegions[region.ID] = true
	s.runningCredentials[chosen.ID] = true
	s.lastScanAt[region.ID] = now

	return Selection{Region: region, Credential: *chosen}, true
}

// Finish clears the in-flight markers for a (region, credential) pair once
// its scan completes or fails, so they become selectable again.
func (s *Scheduler) Finish(regionID, credentialID int64) {
	delete(s.runningRegions, regionID)
	delete(s.runningCredentials, credentialID)
}

func lastUsed(c *core.Credential) time.Time {
	if c.LastUsedAt == nil {
		return time.Time{}
	}
	return *c.LastUsedAt
}

// AdjustFrequency runs the daily self-tuning rule of spec §4.H: lengthen
// minInterval when scans are returning few posts, shorten it when they are
// returning a lot, clamped to [15min, 240min].
func (s *Scheduler) AdjustFrequency(medianPostsPerScan float64) {
	switch {
	case medianPostsPerScan < lowPostsPerScan:
		s.minInterval = clampDuration(time.Duration(float64(s.minInterval)*frequencyTuneFactor), minIntervalFloor, minIntervalCap)
	case medianPostsPerScan > highPostsPerScan:
		s.minInterval = clampDuration(time.Duration(float64(s.minInterval)/frequencyTuneFactor), minIntervalFloor, minIntervalCap)
	}
}

func clampDuration(d, floor, cap_ time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	if d > cap_ {
		return cap_
	}
	return d
}
