// Package calibration collects multi-part calibration messages.
//
// A calibration is sent as Size frames "C<index>:<data>", in any order.
// The Session completes once every index arrived, or gives up when the
// first part is older than the timeout.
package calibration

import (
	"bytes"
	"strconv"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/multipart"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

// Tag starts every calibration frame.
const Tag = "C"

// Result is a completed calibration.
type Result struct {
	Parts    [][]byte
	Duration ticks.Millis
}

// Stats counts calibration outcomes. Fields are updated atomically.
type Stats struct {
	Completed uint64
	TimedOut  uint64
	Rejected  uint64
}

// Session assembles one calibration at a time.
type Session struct {
	Clock      ticks.Clock
	OnComplete func(Result)

	validator *multipart.Validator
	parts     [][]byte
	stats     Stats
}

// NewSession creates a Session expecting size parts within timeout.
func NewSession(clock ticks.Clock, size int, timeout ticks.Millis) *Session {
	return &Session{
		Clock:     clock,
		validator: multipart.New(clock, size, timeout),
		parts:     make([][]byte, size),
	}
}

// Received returns the number of parts received in the current cycle.
func (s *Session) Received() int {
	return s.validator.Received()
}

// Missing lists the indices still outstanding.
func (s *Session) Missing() []int {
	return s.validator.Missing()
}

// Accept records one part. A repeated index replaces the earlier data.
// A part arriving after the cycle timed out abandons that cycle and starts
// the next one.
func (s *Session) Accept(index int, data []byte) error {
	s.Check()
	if err := s.validator.MarkReceived(index); err != nil {
		atomic.AddUint64(&s.stats.Rejected, 1)
		return err
	}
	s.parts[index] = append(s.parts[index][:0], data...)
	if s.validator.IsComplete() {
		start, _ := s.validator.StartTime()
		res := Result{Parts: s.parts, Duration: ticks.Elapsed(s.Clock.Millis(), start)}
		glog.Infof("calibration complete: %d parts in %dms", len(res.Parts), res.Duration)
		atomic.AddUint64(&s.stats.Completed, 1)
		if s.OnComplete != nil {
			s.OnComplete(res)
		}
		s.reset()
	}
	return nil
}

// Check abandons a cycle which timed out and reports whether it did.
func (s *Session) Check() bool {
	if !s.validator.HasTimedOut() {
		return false
	}
	glog.Warningf("calibration timed out, missing parts %v", s.validator.Missing())
	atomic.AddUint64(&s.stats.TimedOut, 1)
	s.reset()
	return true
}

func (s *Session) reset() {
	s.validator.Reset()
	s.parts = make([][]byte, len(s.parts))
}

// HandleFrame implements comm.FrameHandler.
func (s *Session) HandleFrame(_ framework.ControlContext, f comm.Frame) {
	index, data, err := ParseFrame(f.Data)
	if err != nil {
		glog.Warningf("%s: bad calibration frame %q: %v", f.Stream, f.Data, err)
		atomic.AddUint64(&s.stats.Rejected, 1)
		return
	}
	if err := s.Accept(index, data); err != nil {
		glog.Warningf("%s: calibration part %d: %v", f.Stream, index, err)
	}
}

// Control implements framework.Controller.
func (s *Session) Control(framework.ControlContext) error {
	s.Check()
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (s *Session) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvControl, s)
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	return Stats{
		Completed: atomic.LoadUint64(&s.stats.Completed),
		TimedOut:  atomic.LoadUint64(&s.stats.TimedOut),
		Rejected:  atomic.LoadUint64(&s.stats.Rejected),
	}
}

// ParseFrame splits "C<index>:<data>".
func ParseFrame(frame []byte) (int, []byte, error) {
	body := bytes.TrimPrefix(frame, []byte(Tag))
	sep := bytes.IndexByte(body, ':')
	if sep < 0 {
		return 0, nil, strconv.ErrSyntax
	}
	index, err := strconv.Atoi(string(body[:sep]))
	if err != nil {
		return 0, nil, err
	}
	return index, body[sep+1:], nil
}
