package engagement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestColdStartReturnsDefaultSlot(t *testing.T) {
	s := New(DefaultWindowDays)
	s.Record(1, time.Now(), 100)

	hour, minute := s.OptimalTime(1, "", nil)
	assert.Equal(t, coldStartHour, hour)
	assert.Equal(t, 0, minute)

	forecast := s.EngagementForecast(1, time.Now())
	assert.Equal(t, Acceptable, forecast.Recommendation)
}

func seedRegion(s *Scorer, regionID int64, base time.Time) {
	// 9am gets strong engagement every day of a full week; other hours
	// get a modest baseline, comfortably clearing the cold-start floor.
	s.now = fixedClock(base.AddDate(0, 0, 7))
	for day := 0; day < 7; day++ {
		at := base.AddDate(0, 0, day)
		nine := time.Date(at.Year(), at.Month(), at.Day(), 9, 0, 0, 0, at.Location())
		s.Record(regionID, nine, 500)
		fifteen := time.Date(at.Year(), at.Month(), at.Day(), 15, 0, 0, 0, at.Location())
		s.Record(regionID, fifteen, 50)
		twenty := time.Date(at.Year(), at.Month(), at.Day(), 20, 0, 0, 0, at.Location())
		s.Record(regionID, twenty, 50)
	}
}

func TestOptimalTimePicksHighestAverageHour(t *testing.T) {
	s := New(DefaultWindowDays)
	base := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	seedRegion(s, 1, base)

	hour, minute := s.OptimalTime(1, "", nil)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 0, minute)
}

func TestOptimalTimeRespectsSlotRestriction(t *testing.T) {
	s := New(DefaultWindowDays)
	base := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	seedRegion(s, 1, base)

	afternoon := SlotAfternoon
	hour, _ := s.OptimalTime(1, "", &afternoon)
	assert.GreaterOrEqual(t, hour, 12)
	assert.LessOrEqual(t, hour, 17)
}

func TestEngagementForecastRecommendation(t *testing.T) {
	s := New(DefaultWindowDays)
	base := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	seedRegion(s, 1, base)

	strong := s.EngagementForecast(1, time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, StronglyRecommended, strong.Recommendation)

	weak := s.EngagementForecast(1, time.Date(2026, 7, 20, 15, 0, 0, 0, time.UTC))
	assert.NotEqual(t, StronglyRecommended, weak.Recommendation)
}

func TestShouldPublishNowWithinTolerance(t *testing.T) {
	s := New(DefaultWindowDays)
	base := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	seedRegion(s, 1, base)
	s.now = fixedClock(time.Date(2026, 7, 20, 10, 0, 0, 0, time.UTC))

	ok, reason := s.ShouldPublishNow(1, "", 2)
	assert.True(t, ok)
	assert.Contains(t, reason, "tolerance")
}

func TestPublicationCalendarChronological(t *testing.T) {
	s := New(DefaultWindowDays)
	base := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	seedRegion(s, 1, base)
	s.now = fixedClock(base)

	entries := s.PublicationCalendar(1, 3)
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Date.Before(entries[i-1].Date))
	}
}

func TestRecordPrunesOutsideWindow(t *testing.T) {
	s := New(MinWindowDays)
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	s.now = fixedClock(now)

	stale := now.AddDate(0, 0, -MinWindowDays-1)
	s.Record(1, stale, 999)
	assert.Equal(t, 0, s.acceptedCount(1))

	fresh := now.AddDate(0, 0, -1)
	s.Record(1, fresh, 10)
	assert.Equal(t, 1, s.acceptedCount(1))
}
