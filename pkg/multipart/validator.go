// Package multipart tracks completion of logical operations which need
// several independent asynchronous messages before they can proceed.
package multipart

import (
	"errors"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

// ErrIndexOutOfRange is returned by MarkReceived for an unknown slot.
var ErrIndexOutOfRange = errors.New("message index out of range")

// Validator records which of N labeled sub-messages arrived within a
// timeout window. Call Reset before starting each new exchange.
type Validator struct {
	clock   ticks.Clock
	size    int
	timeout ticks.Millis

	received  []uint64
	count     int
	startTime ticks.Millis
}

// New creates a Validator for size slots. A zero timeout never expires.
func New(clock ticks.Clock, size int, timeout ticks.Millis) *Validator {
	if size < 0 {
		size = 0
	}
	return &Validator{
		clock:    clock,
		size:     size,
		timeout:  timeout,
		received: make([]uint64, (size+63)/64),
	}
}

// Size returns the number of slots.
func (v *Validator) Size() int {
	return v.size
}

// Timeout returns the configured completion timeout.
func (v *Validator) Timeout() ticks.Millis {
	return v.timeout
}

// Reset clears all slots.
func (v *Validator) Reset() {
	for i := range v.received {
		v.received[i] = 0
	}
	v.count = 0
}

// MarkReceived sets slot index. The first slot set since the last Reset
// starts the timeout window.
func (v *Validator) MarkReceived(index int) error {
	if index < 0 || index >= v.size {
		glog.Warningf("multipart: index %d out of range [0, %d)", index, v.size)
		return ErrIndexOutOfRange
	}
	word, mask := index/64, uint64(1)<<uint(index%64)
	if v.received[word]&mask != 0 {
		return nil
	}
	if v.count == 0 {
		v.startTime = v.clock.Millis()
	}
	v.received[word] |= mask
	v.count++
	return nil
}

// IsReceived reports whether slot index is set.
func (v *Validator) IsReceived(index int) bool {
	if index < 0 || index >= v.size {
		return false
	}
	return v.received[index/64]&(uint64(1)<<uint(index%64)) != 0
}

// IsStarted reports whether any slot is set.
func (v *Validator) IsStarted() bool {
	return v.count > 0
}

// IsComplete reports whether every slot is set.
func (v *Validator) IsComplete() bool {
	return v.count == v.size
}

// HasTimedOut reports whether the window opened by the first received
// slot is older than the timeout. It is always false before any slot is
// received, so a start tick left over from a previous cycle is never used.
func (v *Validator) HasTimedOut() bool {
	if v.timeout == 0 || !v.IsStarted() {
		return false
	}
	return ticks.Expired(v.clock.Millis(), v.startTime, v.timeout)
}

// StartTime returns the tick of the first received slot of this cycle.
func (v *Validator) StartTime() (ticks.Millis, bool) {
	return v.startTime, v.IsStarted()
}

// Missing lists the slots not yet received.
func (v *Validator) Missing() []int {
	missing := make([]int, 0, v.size-v.count)
	for i := 0; i < v.size; i++ {
		if !v.IsReceived(i) {
			missing = append(missing, i)
		}
	}
	return missing
}

// Received returns the number of slots set.
func (v *Validator) Received() int {
	return v.count
}
