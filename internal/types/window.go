package types

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for trend points and query params
const DateLayout = "2006-01-02"

// Window is an inclusive range of calendar dates in a declared timezone.
// Membership and bucketing are decided by the local calendar date of a
// timestamp, never by truncating the UTC instant.
type Window struct {
	first time.Time // UTC midnight carrying the first local date
	days  int
	loc   *time.Location
}

// NewWindow builds a window covering every local date from start to end inclusive
func NewWindow(start, end time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	first := civilDate(start, loc)
	last := civilDate(end, loc)
	if last.Before(first) {
		return Window{}, fmt.Errorf("window end %s is before start %s", last.Format(DateLayout), first.Format(DateLayout))
	}
	days := int(last.Sub(first).Hours()/24) + 1
	return Window{first: first, days: days, loc: loc}, nil
}

// LastDays builds a window of n calendar days ending on end's local date
func LastDays(end time.Time, n int, loc *time.Location) (Window, error) {
	if n <= 0 {
		return Window{}, fmt.Errorf("window must span at least one day, got %d", n)
	}
	if loc == nil {
		loc = time.UTC
	}
	last := civilDate(end, loc)
	first := last.AddDate(0, 0, -(n - 1))
	return Window{first: first, days: n, loc: loc}, nil
}

// civilDate maps t to UTC midnight of its calendar date in loc, so date
// arithmetic is immune to DST transitions.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of calendar dates in the window
func (w Window) Days() int {
	return w.days
}

// Location returns the window's timezone
func (w Window) Location() *time.Location {
	if w.loc == nil {
		return time.UTC
	}
	return w.loc
}

// Start returns local midnight of the first date
func (w Window) Start() time.Time {
	y, m, d := w.first.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.Location())
}

// End returns the last instant of the final date
func (w Window) End() time.Time {
	y, m, d := w.first.AddDate(0, 0, w.days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.Location()).Add(-time.Nanosecond)
}

// Date returns the i-th calendar date formatted as YYYY-MM-DD
func (w Window) Date(i int) string {
	return w.first.AddDate(0, 0, i).Format(DateLayout)
}

// DayIndex returns the trend bucket for t, or false when t falls outside the window
func (w Window) DayIndex(t time.Time) (int, bool) {
	if t.IsZero() {
		return 0, false
	}
	idx := int(civilDate(t, w.Location()).Sub(w.first).Hours() / 24)
	if idx < 0 || idx >= w.days {
		return 0, false
	}
	return idx, true
}

// Contains reports whether t's local date is inside the window
func (w Window) Contains(t time.Time) bool {
	_, ok := w.DayIndex(t)
	return ok
}
