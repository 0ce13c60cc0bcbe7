package moods

import (
	"strings"
	"time"
)

// DateLayout is the wire format of a calendar day.
const DateLayout = "2006-01-02"

// NormalizeDate returns the calendar day that t falls on in loc, encoded as
// midnight UTC. A nil loc means UTC.
func NormalizeDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a civil date (YYYY-MM-DD), taken as-is, or an RFC 3339
// instant, which is placed on its day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: "date", Reason: "is required"}
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD or an RFC 3339 timestamp"}
	}
	return NormalizeDate(t, loc), nil
}
