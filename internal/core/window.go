package core

import (
	"strings"
	"time"
)

const (
	WindowAll   Window = "all"
	WindowYear  Window = "year"
	WindowMonth Window = "month"
	WindowWeek  Window = "week"
)

// Window is a rolling day-granular span ending at "now". Week, month and
// year are fixed spans of 7, 30 and 365 days; All keeps everything,
// including future-dated and undatable records.
type Window string

// ParseWindow maps a query value to a Window. Unknown or empty values fall
// back to All, the widest view.
func ParseWindow(s string) Window {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week":
		return WindowWeek
	case "month":
		return WindowMonth
	case "year":
		return WindowYear
	case "all", "":
		return WindowAll
	}
	return WindowAll
}

func (w Window) IsValid() bool {
	switch w {
	case WindowAll, WindowYear, WindowMonth, WindowWeek:
		return true
	}
	return false
}

func (w Window) String() string {
	return string(w)
}

// days is the window span; All has no span.
func (w Window) days() int {
	switch w {
	case WindowWeek:
		return 7
	case WindowMonth:
		return 30
	case WindowYear:
		return 365
	}
	return 0
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func betweenDays(t time.Time, start, end time.Time) bool {
	td := dateOnly(t)
	sd := dateOnly(start)
	ed := dateOnly(end)
	return (td.Equal(sd) || td.After(sd)) && (td.Equal(ed) || td.Before(ed))
}

// FilterByWindow keeps the records whose OccurredAt falls inside the window
// ending at now, compared at calendar-day granularity in UTC. A record on
// the boundary day is kept. Future-dated records are excluded from every
// bounded window; so are records with a zero date, which cannot be placed
// in time. All returns every record unconditionally.
//
// The result is a fresh slice preserving the input order; the input is
// never mutated.
func FilterByWindow(records []Record, now time.Time, w Window) []Record {
	out := make([]Record, 0, len(records))
	if w == WindowAll || !w.IsValid() {
		out = append(out, records...)
		return out
	}
	end := dateOnly(now)
	start := end.AddDate(0, 0, -w.days())
	for _, r := range records {
		if betweenDays(r.OccurredAt.Time, start, end) {
			out = append(out, r)
		}
	}
	return out
}
