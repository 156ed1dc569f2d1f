package domain

import "time"

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusPast     Status = "past"
)

// GracePeriod is how long a poll stays active after its deadline day begins.
const GracePeriod = 48 * time.Hour

// DeriveStatus is a pure function of deadline and now; calling it again on
// the same inputs always yields the same status.
func DeriveStatus(deadline, now time.Time, grace time.Duration) Status {
	d := DateOnly(deadline)
	switch {
	case now.Before(d):
		return StatusUpcoming
	case now.Before(d.Add(grace)):
		return StatusActive
	default:
		return StatusPast
	}
}

// DateOnly strips the time of day, leaving UTC midnight of the same calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDeadline accepts "2006-01-02" or a full RFC3339 timestamp. A
// timestamp keeps the calendar date written in its own offset.
func ParseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
