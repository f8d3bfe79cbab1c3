// Package ticks provides the millisecond tick counter used by every
// timeout in the runtime.
//
// A tick counter is an unsigned 32-bit millisecond count which silently
// wraps after about 49.7 days. Ages must always be computed with Elapsed,
// which is correct across one wrap, never by comparing two readings.
package ticks

import "time"

// Millis is a reading of the monotonic millisecond counter.
type Millis uint32

// Elapsed returns the ticks passed from ref to now, modulo 2^32.
func Elapsed(now, ref Millis) Millis {
	return now - ref
}

// Expired reports whether strictly more than timeout ticks passed since ref.
func Expired(now, ref, timeout Millis) bool {
	return Elapsed(now, ref) > timeout
}

// Since is the method form of Elapsed.
func (m Millis) Since(ref Millis) Millis {
	return Elapsed(m, ref)
}

// Duration converts ticks into time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// FromDuration converts d into ticks, saturating at the counter range.
func FromDuration(d time.Duration) Millis {
	if d <= 0 {
		return 0
	}
	ms := d / time.Millisecond
	if ms > 0xffffffff {
		return Millis(0xffffffff)
	}
	return Millis(ms)
}

// Clock reads the tick counter.
type Clock interface {
	Millis() Millis
}

// ClockFunc is the func form of Clock.
type ClockFunc func() Millis

// Millis implements Clock.
func (f ClockFunc) Millis() Millis {
	return f()
}

// SystemClock counts milliseconds from its creation using the monotonic
// clock of the host.
type SystemClock struct {
	start  time.Time
	offset Millis
}

// NewSystemClock creates a SystemClock starting at zero.
func NewSystemClock() *SystemClock {
	return NewSystemClockAt(0)
}

// NewSystemClockAt creates a SystemClock whose first reading is offset.
// A start close to 2^32 makes the counter wrap early, as it would on a
// board that has been running for weeks.
func NewSystemClockAt(offset Millis) *SystemClock {
	return &SystemClock{start: time.Now(), offset: offset}
}

// Millis implements Clock.
func (c *SystemClock) Millis() Millis {
	return c.offset + Millis(uint64(time.Since(c.start)/time.Millisecond))
}
