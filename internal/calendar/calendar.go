// Package calendar computes local calendar-day boundaries for the voting day.
package calendar

import (
	"fmt"
	"time"
)

// Day returns the start of t's calendar day in loc and the start of the next day.
// Both are returned in loc; the span is 23 or 25 hours across DST changes.
func Day(t time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	y, m, d := local.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return start, end
}

// LoadLocation resolves an IANA zone name. Empty and "Local" mean the host zone.
func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}
