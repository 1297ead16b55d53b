package testfixtures

import (
	"sync/atomic"
	"time"
)

// Clock is a manually driven time source shared by services and sweeps under
// test. Instants are kept in UTC.
type Clock struct {
	nanos atomic.Int64
}

// NewClock starts the clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	c := &Clock{}
	c.Set(start)
	return c
}

// Now reports the current instant.
func (c *Clock) Now() time.Time {
	return time.Unix(0, c.nanos.Load()).UTC()
}

// NowFunc returns Now for injection; a nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps to t.
func (c *Clock) Set(t time.Time) {
	c.nanos.Store(t.UnixNano())
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	return time.Unix(0, c.nanos.Add(int64(d))).UTC()
}

// NextTick jumps to the next UTC-aligned multiple of interval, the instant an
// aligned time-reminder trigger would fire.
func (c *Clock) NextTick(interval time.Duration) time.Time {
	next := c.Now().Truncate(interval).Add(interval)
	c.Set(next)
	return next
}

// NextMidnight jumps to the next midnight in loc, the instant a daily
// day-reminder trigger would fire.
func (c *Clock) NextMidnight(loc *time.Location) time.Time {
	local := c.Now().In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc).UTC()
	c.Set(next)
	return next
}
