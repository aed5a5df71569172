// Package engagement maintains, per region, a moving-average matrix of
// publication engagement by hour and weekday (spec §4.G), grounded on the
// teacher's weekday/hour temporal-activity matrix idiom.
package engagement

import (
	"sort"
	"time"

	"github.com/valstan/setka/internal/core"
)

// Window bounds from spec §4.G.
const (
	DefaultWindowDays = 90
	MinWindowDays     = 7
	MaxWindowDays     = 365

	// ColdStartThreshold is the minimum accepted-post count a region needs
	// before the matrix is trusted over the cold-start default.
	ColdStartThreshold = 20

	coldStartHour   = 14
	coldStartSlot   = SlotAfternoon
	coldStartReason = "cold start: fewer than 20 accepted posts for region"
)

// TimeSlot restricts OptimalTime and appears in publication calendar
// entries.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
)

var slotHourRanges = map[TimeSlot][2]int{
	SlotMorning:   {6, 11},
	SlotAfternoon: {12, 17},
	SlotEvening:   {18, 22},
}

// Recommendation is the qualitative verdict engagement_forecast and
// publication_calendar attach to a candidate slot.
type Recommendation string

const (
	StronglyRecommended Recommendation = "strongly recommended"
	Recommended         Recommendation = "recommended"
	Acceptable          Recommendation = "acceptable"
	NotRecommended      Recommendation = "not recommended"
)

func recommendationFor(vsAveragePct float64) Recommendation {
	switch {
	case vsAveragePct >= 25:
		return StronglyRecommended
	case vsAveragePct >= 10:
		return Recommended
	case vsAveragePct <= -10:
		return NotRecommended
	default:
		return Acceptable
	}
}

type bucketKey struct {
	Hour    int
	Weekday time.Weekday
}

type observation struct {
	at    time.Time
	value float64
}

// Scorer holds the per-region (hour, weekday) engagement matrix. Its
// methods take no lock: concurrent calls on one Scorer are not
// synchronized.
type Scorer struct {
	windowDays int
	now        func() time.Time

	byRegion map[int64]map[bucketKey][]observation
}

// New builds a Scorer with the given moving-average window, clamped to
// [MinWindowDays, MaxWindowDays].
func New(windowDays int) *Scorer {
	if windowDays < MinWindowDays {
		windowDays = MinWindowDays
	}
	if windowDays > MaxWindowDays {
		windowDays = MaxWindowDays
	}
	return &Scorer{
		windowDays: windowDays,
		now:        time.Now,
		byRegion:   make(map[int64]map[bucketKey][]observation),
	}
}

// Record adds an accepted post's engagement into its region's matrix.
// Only posts with Status == Accepted should be recorded (spec §4.G:
// "computed from accepted posts").
func (s *Scorer) Record(regionID int64, publishedAt time.Time, engagementValue float64) {
	key := bucketKey{Hour: publishedAt.Hour(), Weekday: publishedAt.Weekday()}
	buckets, ok := s.byRegion[regionID]
	if !ok {
		buckets = make(map[bucketKey][]observation)
		s.byRegion[regionID] = buckets
	}
	buckets[key] = prune(append(buckets[key], observation{at: publishedAt, value: engagementValue}), s.cutoff())
}

func (s *Scorer) cutoff() time.Time {
	return s.now().AddDate(0, 0, -s.windowDays)
}

func prune(obs []observation, cutoff time.Time) []observation {
	kept := obs[:0]
	for _, o := range obs {
		if o.at.After(cutoff) {
			kept = append(kept, o)
		}
	}
	return kept
}

func average(obs []observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	var total float64
	for _, o := range obs {
		total += o.value
	}
	return total / float64(len(obs))
}

// acceptedCount returns the total number of recorded observations for a
// region across every bucket, used for the cold-start check.
func (s *Scorer) acceptedCount(regionID int64) int {
	count := 0
	for _, obs := range s.byRegion[regionID] {
		count += len(obs)
	}
	return count
}

// hourAverage collapses the weekday dimension, returning the average
// engagement for a given hour across every weekday on record.
func (s *Scorer) hourAverage(regionID int64, hour int) float64 {
	var all []observation
	for key, obs := range s.byRegion[regionID] {
		if key.Hour == hour {
			all = append(all, obs...)
		}
	}
	return average(all)
}

// regionAverage is the overall average engagement across every bucket for
// a region, the baseline engagement_forecast compares against.
func (s *Scorer) regionAverage(regionID int64) float64 {
	var all []observation
	for _, obs := range s.byRegion[regionID] {
		all = append(all, obs...)
	}
	return average(all)
}

func (s *Scorer) bucketAverage(regionID int64, hour int, weekday time.Weekday) float64 {
	return average(s.byRegion[regionID][bucketKey{Hour: hour, Weekday: weekday}])
}

// OptimalTime returns the (hour, minute) with maximum average engagement
// for region, optionally restricted to a slot's hour range. category is
// accepted for forward API compatibility: the baseline matrix of §4.G has
// no category dimension, so it does not affect bucket selection.
func (s *Scorer) OptimalTime(regionID int64, category string, slot *TimeSlot) (hour, minute int) {
	_ = category
	if s.acceptedCount(regionID) < ColdStartThreshold {
		return coldStartHour, 0
	}

	lo, hi := 0, 23
	if slot != nil {
		if r, ok := slotHourRanges[*slot]; ok {
			lo, hi = r[0], r[1]
		}
	}

	bestHour := lo
	bestAvg := -1.0
	for h := lo; h <= hi; h++ {
		avg := s.hourAverage(regionID, h)
		if avg > bestAvg {
			bestAvg = avg
			bestHour = h
		}
	}
	return bestHour, 0
}

// Forecast is the output of engagement_forecast.
type Forecast struct {
	Forecast       float64
	Average        float64
	VsAveragePct   float64
	Recommendation Recommendation
}

// EngagementForecast returns the forecasted engagement for a specific
// (region, when) bucket against the region's overall average.
func (s *Scorer) EngagementForecast(regionID int64, when time.Time) Forecast {
	if s.acceptedCount(regionID) < ColdStartThreshold {
		return Forecast{Recommendation: Acceptable}
	}

	avg := s.regionAverage(regionID)
	forecast := s.bucketAverage(regionID, when.Hour(), when.Weekday())

	var vsPct float64
	if avg > 0 {
		vsPct = (forecast - avg) / avg * 100
	}
	return Forecast{
		Forecast:       forecast,
		Average:        avg,
		VsAveragePct:   vsPct,
		Recommendation: recommendationFor(vsPct),
	}
}

// ShouldPublishNow reports whether region's current engagement window
// favors publishing now, either because it is within toleranceHours of
// the optimal hour or because the current forecast is not "not
// recommended".
func (s *Scorer) ShouldPublishNow(regionID int64, category string, toleranceHours int) (bool, string) {
	if s.acceptedCount(regionID) < ColdStartThreshold {
		return true, coldStartReason
	}

	now := s.now()
	optimalHour, _ := s.OptimalTime(regionID, category, nil)
	if circularHourDistance(now.Hour(), optimalHour) <= toleranceHours {
		return true, "within tolerance of the optimal hour"
	}

	forecast := s.EngagementForecast(regionID, now)
	if forecast.Recommendation == NotRecommended {
		return false, "current hour is below the region's acceptable engagement threshold"
	}
	return true, string(forecast.Recommendation)
}

func circularHourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

// CalendarEntry is one recommended slot in a publication calendar.
type CalendarEntry struct {
	Date           time.Time
	Slot           TimeSlot
	Hour           int
	Recommendation Recommendation
	VsAveragePct   float64
}

// PublicationCalendar returns chronologically ordered recommended slots
// for the next `days` days: for each day and slot, the best hour within
// that slot's range, included only when its forecast exceeds the
// acceptable threshold (i.e. is not "not recommended").
func (s *Scorer) PublicationCalendar(regionID int64, days int) []CalendarEntry {
	if s.acceptedCount(regionID) < ColdStartThreshold {
		return []CalendarEntry{{
			Date:           s.now(),
			Slot:           coldStartSlot,
			Hour:           coldStartHour,
			Recommendation: Acceptable,
		}}
	}

	var entries []CalendarEntry
	slots := []TimeSlot{SlotMorning, SlotAfternoon, SlotEvening}
	start := s.now()
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		for _, slot := range slots {
			slotCopy := slot
			hour, _ := s.OptimalTime(regionID, "", &slotCopy)
			when := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
			forecast := s.EngagementForecast(regionID, when)
			if forecast.Recommendation == NotRecommended {
				continue
			}
			entries = append(entries, CalendarEntry{
				Date:           when,
				Slot:           slot,
				Hour:           hour,
				Recommendation: forecast.Recommendation,
				VsAveragePct:   forecast.VsAveragePct,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries
}
