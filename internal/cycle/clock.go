package cycle

import (
	"time"

	"cloud.google.com/go/civil"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Current resolves "now": midnight of the manual date when one is set, the clock otherwise.
func Current(clock Clock, manual *civil.Date) time.Time {
	now := clock.Now()
	if manual == nil {
		return now
	}
	return manual.In(now.Location())
}
