package comm

import (
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

// ByteSource is a polled byte stream.
type ByteSource interface {
	// Available returns the number of bytes which can be read right away.
	Available() int
	// ReadByte reads one byte, or fails with ErrNoData.
	ReadByte() (byte, error)
}

// State is the state of a Framer.
type State int

const (
	// StateEmpty means no byte of the next frame was received.
	StateEmpty State = iota
	// StateFilling means part of a frame is buffered.
	StateFilling
	// StateMessageReady means a complete frame waits to be taken.
	StateMessageReady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFilling:
		return "filling"
	case StateMessageReady:
		return "ready"
	}
	return "unknown"
}

// OverflowPolicy decides what happens when a frame outgrows the buffer.
type OverflowPolicy int

const (
	// OverflowWrap restarts the frame at index 0, losing the prefix.
	OverflowWrap OverflowPolicy = iota
	// OverflowReject drops bytes beyond the capacity and flags the frame
	// as truncated once the stop byte arrives.
	OverflowReject
)

// FramerConfig configures a Framer.
type FramerConfig struct {
	// Size is the buffer capacity, not counting the stop byte.
	Size int
	// StopByte terminates a frame unless FixedLength is set.
	StopByte byte
	// FixedLength frames are exactly Size bytes with no stop byte.
	FixedLength bool
	// ReceptionTimeout discards a partial frame idle for longer. 0 disables.
	ReceptionTimeout ticks.Millis
	// Overflow is the policy applied to frames longer than Size.
	Overflow OverflowPolicy
}

// Defaults for the UART and BLE streams.
const (
	DefaultFrameSize        = 500
	DefaultStopByte         = ';'
	DefaultReceptionTimeout = ticks.Millis(2000)

	BLEFrameSize        = 20
	BLEReceptionTimeout = ticks.Millis(100)
)

// DefaultFramerConfig returns the configuration of the host UART stream.
func DefaultFramerConfig() FramerConfig {
	return FramerConfig{
		Size:             DefaultFrameSize,
		StopByte:         DefaultStopByte,
		ReceptionTimeout: DefaultReceptionTimeout,
	}
}

// BLEFramerConfig returns the configuration of the BLE bridge stream.
func BLEFramerConfig() FramerConfig {
	return FramerConfig{
		Size:             BLEFrameSize,
		FixedLength:      true,
		ReceptionTimeout: BLEReceptionTimeout,
	}
}

// FramerStats counts framing events. Fields are updated atomically and may
// be read from other goroutines.
type FramerStats struct {
	Frames    uint64
	Overflows uint64
	Timeouts  uint64
	Dropped   uint64
}

// Framer accumulates bytes from a ByteSource into frames.
type Framer struct {
	Source ByteSource
	Clock  ticks.Clock

	config    FramerConfig
	buf       []byte
	cursor    int
	ready     bool
	truncated bool
	excess    int
	lastRead  ticks.Millis
	stats     FramerStats
}

// NewFramer creates a Framer.
func NewFramer(src ByteSource, clock ticks.Clock, conf FramerConfig) *Framer {
	if conf.Size <= 0 {
		conf.Size = DefaultFrameSize
	}
	return &Framer{
		Source: src,
		Clock:  clock,
		config: conf,
		buf:    make([]byte, conf.Size),
	}
}

// Config returns the configuration.
func (f *Framer) Config() FramerConfig {
	return f.config
}

// State returns the current state.
func (f *Framer) State() State {
	if f.ready {
		return StateMessageReady
	}
	if f.cursor > 0 || f.truncated {
		return StateFilling
	}
	return StateEmpty
}

// Fill consumes the bytes queued in Source and returns the resulting
// state. In stop byte mode nothing is consumed while a frame is ready.
// In fixed length mode a ready frame which was not taken before the next
// Fill is dropped.
func (f *Framer) Fill() State {
	now := f.Clock.Millis()
	if f.ready {
		if !f.config.FixedLength {
			return StateMessageReady
		}
		glog.Warningf("framer: %d byte frame not consumed, dropped", f.cursor)
		atomic.AddUint64(&f.stats.Dropped, uint64(f.cursor))
		f.Reset()
	}
	if f.State() == StateFilling && f.config.ReceptionTimeout > 0 &&
		ticks.Expired(now, f.lastRead, f.config.ReceptionTimeout) {
		glog.V(2).Infof("framer: reception timeout, %d stale bytes discarded", f.cursor)
		atomic.AddUint64(&f.stats.Timeouts, 1)
		atomic.AddUint64(&f.stats.Dropped, uint64(f.cursor))
		f.Reset()
	}
	for f.Source.Available() > 0 {
		b, err := f.Source.ReadByte()
		if err != nil {
			break
		}
		f.lastRead = now
		if f.push(b) {
			f.ready = true
			atomic.AddUint64(&f.stats.Frames, 1)
			return StateMessageReady
		}
	}
	return f.State()
}

func (f *Framer) push(b byte) (complete bool) {
	if !f.config.FixedLength && b == f.config.StopByte {
		return true
	}
	if f.cursor == len(f.buf) {
		if f.config.Overflow == OverflowReject {
			if !f.truncated {
				f.truncated = true
				atomic.AddUint64(&f.stats.Overflows, 1)
				glog.Warningf("framer: frame exceeds %d bytes, rejecting excess", len(f.buf))
			}
			f.excess++
			atomic.AddUint64(&f.stats.Dropped, 1)
			return false
		}
		glog.Warningf("framer: frame exceeds %d bytes, overwriting from start", len(f.buf))
		atomic.AddUint64(&f.stats.Overflows, 1)
		atomic.AddUint64(&f.stats.Dropped, uint64(f.cursor))
		f.cursor = 0
	}
	f.buf[f.cursor] = b
	f.cursor++
	return f.config.FixedLength && f.cursor == len(f.buf)
}

// Message returns the ready frame without consuming it. The slice is only
// valid until the next Take, Reset or Fill.
func (f *Framer) Message() []byte {
	if !f.ready {
		return nil
	}
	return f.buf[:f.cursor]
}

// Truncated reports whether the ready frame lost bytes to OverflowReject.
func (f *Framer) Truncated() bool {
	return f.ready && f.truncated
}

// Err returns an *OverflowError when the ready frame is truncated.
func (f *Framer) Err() error {
	if !f.Truncated() {
		return nil
	}
	return &OverflowError{Size: len(f.buf), Dropped: f.excess}
}

// Take drains the ready frame.
func (f *Framer) Take() ([]byte, bool) {
	if !f.ready {
		return nil, false
	}
	msg := make([]byte, f.cursor)
	copy(msg, f.buf[:f.cursor])
	f.Reset()
	return msg, true
}

// Reset discards any buffered bytes.
func (f *Framer) Reset() {
	f.cursor, f.ready, f.truncated, f.excess = 0, false, false, 0
}

// Stats returns a snapshot of the counters.
func (f *Framer) Stats() FramerStats {
	return FramerStats{
		Frames:    atomic.LoadUint64(&f.stats.Frames),
		Overflows: atomic.LoadUint64(&f.stats.Overflows),
		Timeouts:  atomic.LoadUint64(&f.stats.Timeouts),
		Dropped:   atomic.LoadUint64(&f.stats.Dropped),
	}
}
