package framework

import "time"

// Clock is a monotonic time source. Now returns the time elapsed
// since an arbitrary but fixed origin.
type Clock interface {
	Now() time.Duration
}

// SystemClock reads the monotonic system clock.
type SystemClock struct {
	origin time.Time
}

// NewSystemClock creates a SystemClock with origin at now.
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

// Now implements Clock.
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.origin)
}

// ManualClock only moves when told to, for tests and simulation.
type ManualClock struct {
	now time.Duration
}

// Now implements Clock.
func (c *ManualClock) Now() time.Duration {
	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	c.now += d
}

// Stopwatch measures elapsed time from its last reset.
type Stopwatch struct {
	clock Clock
	start time.Duration
}

// NewStopwatch creates a Stopwatch started now.
func NewStopwatch(clock Clock) *Stopwatch {
	return &Stopwatch{clock: clock, start: clock.Now()}
}

// Reset restarts the stopwatch.
func (s *Stopwatch) Reset() {
	s.start = s.clock.Now()
}

// Elapsed returns the time since last reset.
func (s *Stopwatch) Elapsed() time.Duration {
	return s.clock.Now() - s.start
}
