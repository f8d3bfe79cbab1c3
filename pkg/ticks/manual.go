package ticks

import "sync/atomic"

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	now uint32
}

// NewManualClock creates a ManualClock reading start.
func NewManualClock(start Millis) *ManualClock {
	return &ManualClock{now: uint32(start)}
}

// Millis implements Clock.
func (c *ManualClock) Millis() Millis {
	return Millis(atomic.LoadUint32(&c.now))
}

// Set jumps to an absolute reading.
func (c *ManualClock) Set(m Millis) {
	atomic.StoreUint32(&c.now, uint32(m))
}

// Advance moves the clock forward by d ticks, wrapping like the hardware
// counter does.
func (c *ManualClock) Advance(d Millis) Millis {
	return Millis(atomic.AddUint32(&c.now, uint32(d)))
}
