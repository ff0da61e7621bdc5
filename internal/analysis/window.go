package analysis

import (
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// WindowQuery is the caller's description of a time window. Dates accept
// YYYY-MM-DD (in the window timezone) or RFC3339.
type WindowQuery struct {
	Days     int
	Start    string
	End      string
	Timezone string
}

// WindowInfo describes the resolved window in responses
type WindowInfo struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
	Timezone  string `json:"timezone"`
}

func describe(w types.Window) WindowInfo {
	return WindowInfo{
		StartDate: w.Date(0),
		EndDate:   w.Date(w.Days() - 1),
		Days:      w.Days(),
		Timezone:  w.Location().String(),
	}
}

// ResolveWindow turns a query into a window. Explicit start/end take
// precedence over days; a missing end means today in the window timezone.
func (a *Analyzer) ResolveWindow(q WindowQuery) (types.Window, error) {
	loc := a.cfg.Location
	if q.Timezone != "" {
		l, err := time.LoadLocation(q.Timezone)
		if err != nil {
			return types.Window{}, errors.NewValidationError("Unknown timezone", "tz", q.Timezone)
		}
		loc = l
	}
	if loc == nil {
		loc = time.UTC
	}

	end := a.now()
	if q.End != "" {
		t, err := parseDate(q.End, loc)
		if err != nil {
			return types.Window{}, errors.NewValidationError("Invalid end date", "end", q.End)
		}
		end = t
	}

	var (
		w   types.Window
		err error
	)
	if q.Start != "" {
		start, perr := parseDate(q.Start, loc)
		if perr != nil {
			return types.Window{}, errors.NewValidationError("Invalid start date", "start", q.Start)
		}
		w, err = types.NewWindow(start, end, loc)
		if err != nil {
			return types.Window{}, errors.NewValidationError("Window end is before start", "start", q.Start)
		}
	} else {
		days := q.Days
		if days == 0 {
			days = a.cfg.DefaultWindowDays
		}
		if days < 0 {
			return types.Window{}, errors.NewValidationError("Window must span at least one day", "days", strconv.Itoa(days))
		}
		w, err = types.LastDays(end, days, loc)
		if err != nil {
			return types.Window{}, errors.NewValidationError("Window must span at least one day", "days", strconv.Itoa(days))
		}
	}

	if a.cfg.MaxWindowDays > 0 && w.Days() > a.cfg.MaxWindowDays {
		return types.Window{}, errors.NewValidationError("Window exceeds the maximum length", "days", strconv.Itoa(w.Days()))
	}
	return w, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(types.DateLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
