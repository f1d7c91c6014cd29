package metering

import "time"

// DayKey is a UTC calendar-day bucket in YYYY-MM-DD form. Lexicographic
// comparison of keys matches chronological order.
type DayKey string

const dayKeyLayout = "2006-01-02"

// DayKeyAt returns the day key for t, evaluated at UTC regardless of the
// location attached to t.
func DayKeyAt(t time.Time) DayKey {
	return DayKey(t.UTC().Format(dayKeyLayout))
}

// Before reports whether k is an earlier calendar day than other.
func (k DayKey) Before(other DayKey) bool {
	return string(k) < string(other)
}

func (k DayKey) String() string {
	return string(k)
}
