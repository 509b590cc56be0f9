// Package period converts dashboard period names into half-open UTC intervals
// anchored to US Pacific wall-clock midnight.
package period

import (
	"fmt"
	"strings"
	"time"
)

// The dashboard's fiscal day is defined against a fixed -08:00 wall clock.
// This is NOT DST-aware: every report ever produced for this product used the
// fixed offset, so switching to America/Los_Angeles would shift historical
// period boundaries by an hour for half the year. Do not change without a
// product decision.
var pacific = time.FixedZone("PST", -8*60*60)

// Period is a half-open [Start, End) interval in UTC.
type Period struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the interval. Start is inclusive,
// End is exclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Resolve maps a user-facing period name to a UTC interval relative to now.
// Accepted names: today, yesterday, this_week, last_week, this_month,
// last_month (case-insensitive, spaces or dashes allowed).
func Resolve(name string, now time.Time) (Period, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	local := now.In(pacific)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, pacific)

	var start, end time.Time
	switch normalized {
	case "today":
		start = midnight
		end = midnight.AddDate(0, 0, 1)
	case "yesterday":
		start = midnight.AddDate(0, 0, -1)
		end = midnight
	case "this_week":
		// Weeks start Sunday (US retail convention)
		start = midnight.AddDate(0, 0, -int(local.Weekday()))
		end = start.AddDate(0, 0, 7)
	case "last_week":
		weekStart := midnight.AddDate(0, 0, -int(local.Weekday()))
		start = weekStart.AddDate(0, 0, -7)
		end = weekStart
	case "this_month":
		start = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, pacific)
		end = start.AddDate(0, 1, 0)
	case "last_month":
		end = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, pacific)
		start = end.AddDate(0, -1, 0)
	default:
		return Period{}, fmt.Errorf("unknown period name: %q", name)
	}

	return Period{Name: normalized, Start: start.UTC(), End: end.UTC()}, nil
}

// Custom builds an interval from explicit YYYY-MM-DD dates interpreted as
// Pacific calendar days. The end date is inclusive, so the interval runs
// through Pacific midnight after endDate.
func Custom(startDate, endDate string) (Period, error) {
	start, err := time.ParseInLocation("2006-01-02", startDate, pacific)
	if err != nil {
		return Period{}, fmt.Errorf("invalid startDate format, expected YYYY-MM-DD: %w", err)
	}

	end, err := time.ParseInLocation("2006-01-02", endDate, pacific)
	if err != nil {
		return Period{}, fmt.Errorf("invalid endDate format, expected YYYY-MM-DD: %w", err)
	}

	if end.Before(start) {
		return Period{}, fmt.Errorf("endDate %s is before startDate %s", endDate, startDate)
	}

	return Period{
		Name:  "custom",
		Start: start.UTC(),
		End:   end.AddDate(0, 0, 1).UTC(),
	}, nil
}
