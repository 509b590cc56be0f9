package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTodayBoundary(t *testing.T) {
	// 2026-01-15 10:00 UTC is 2026-01-15 02:00 in fixed -08:00
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	p, err := Resolve("today", now)
	require.NoError(t, err)

	// Pacific midnight of Jan 15 is 08:00 UTC
	assert.Equal(t, time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 1, 16, 8, 0, 0, 0, time.UTC), p.End)

	// One second before the boundary is out, the boundary itself is in
	assert.False(t, p.Contains(time.Date(2026, 1, 15, 7, 59, 59, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)))
	// End is exclusive
	assert.False(t, p.Contains(time.Date(2026, 1, 16, 8, 0, 0, 0, time.UTC)))
}

func TestResolveYesterdayAdjoinsToday(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	today, err := Resolve("today", now)
	require.NoError(t, err)
	yesterday, err := Resolve("yesterday", now)
	require.NoError(t, err)

	assert.Equal(t, yesterday.End, today.Start)
	assert.Equal(t, today.Start.AddDate(0, 0, -1), yesterday.Start)
}

func TestResolveWeekStartsSunday(t *testing.T) {
	// 2026-01-15 is a Thursday in Pacific
	now := time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC)

	p, err := Resolve("this_week", now)
	require.NoError(t, err)

	// Sunday 2026-01-11 Pacific midnight
	assert.Equal(t, time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, p.Start.AddDate(0, 0, 7), p.End)

	last, err := Resolve("last_week", now)
	require.NoError(t, err)
	assert.Equal(t, last.End, p.Start)
	assert.Equal(t, p.Start.AddDate(0, 0, -7), last.Start)
}

func TestResolveMonthBoundary(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	p, err := Resolve("this_month", now)
	require.NoError(t, err)

	// January starts at Pacific midnight Jan 1, which is 08:00 UTC
	assert.Equal(t, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), p.End)

	// A sale at 07:59:59 UTC on Jan 1 belongs to December, not January
	assert.False(t, p.Contains(time.Date(2026, 1, 1, 7, 59, 59, 0, time.UTC)))

	last, err := Resolve("last_month", now)
	require.NoError(t, err)
	assert.Equal(t, last.End, p.Start)
	assert.Equal(t, time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC), last.Start)
}

func TestResolveNameNormalization(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	a, err := Resolve("This Week", now)
	require.NoError(t, err)
	b, err := Resolve("this-week", now)
	require.NoError(t, err)
	c, err := Resolve("  this_week ", now)
	require.NoError(t, err)

	assert.Equal(t, a.Start, b.Start)
	assert.Equal(t, a.Start, c.Start)
}

func TestResolveUnknownName(t *testing.T) {
	_, err := Resolve("fortnight", time.Now())
	assert.Error(t, err)
}

func TestCustomEndDateInclusive(t *testing.T) {
	p, err := Custom("2026-01-01", "2026-01-31")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), p.Start)
	// Inclusive end date: interval runs through Pacific midnight after Jan 31
	assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), p.End)

	// Single-day range is one full Pacific day
	day, err := Custom("2026-01-05", "2026-01-05")
	require.NoError(t, err)
	assert.Equal(t, day.Start.AddDate(0, 0, 1), day.End)
}

func TestCustomValidation(t *testing.T) {
	_, err := Custom("2026-31-01", "2026-01-31")
	assert.Error(t, err)

	_, err = Custom("2026-01-31", "2026-01-01")
	assert.Error(t, err)
}
