package engine

import "time"

// =============================================================================
// CLOCK - Injectable time source
// =============================================================================

// Clock abstracts the engine's local clock so the streak transition
// table and daily rollover can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real local clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

const dateKeyLayout = "2006-01-02"

// DateKey formats t as the calendar-date key used for lastActiveDate
// and the daily challenge lock ("2006-01-02", local calendar).
func DateKey(t time.Time) string { return t.Format(dateKeyLayout) }

// ParseDateKey parses a stored date key. ok=false on malformed input.
func ParseDateKey(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(dateKeyLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayOfYear returns t's ordinal day within its year (1-366). Drives the
// deterministic daily challenge selection.
func DayOfYear(t time.Time) int { return t.YearDay() }

// sameCalendarDay reports whether two instants fall on one calendar day.
func sameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
