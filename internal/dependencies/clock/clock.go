package clock

import "time"

// DayKeyLayout is the layout of a day key. Day keys are always computed in UTC
// so every device of a player agrees on when the day rolls over.
const DayKeyLayout = "2006-01-02"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// DayKey returns the calendar-date key used to detect daily resets
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// StartOfNextDay returns the UTC midnight following t
func StartOfNextDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}

// UntilNextDay returns how long until the day key of t changes
func UntilNextDay(t time.Time) time.Duration {
	return StartOfNextDay(t).Sub(t)
}
