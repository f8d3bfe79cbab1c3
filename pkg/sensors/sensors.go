// Package sensors defines what the runtime needs from sensor drivers.
package sensors

import (
	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

// PowerMode is the power state of a sensor.
type PowerMode int

// Power modes.
const (
	PowerActive PowerMode = iota
	PowerSleep
	PowerSuspend
)

// String implements fmt.Stringer.
func (m PowerMode) String() string {
	switch m {
	case PowerActive:
		return "active"
	case PowerSleep:
		return "sleep"
	case PowerSuspend:
		return "suspend"
	}
	return "unknown"
}

// PowerManaged is a sensor with power modes.
type PowerManaged interface {
	WakeUp() error
	Sleep() error
	Suspend() error
}

// SetPowerMode switches s to mode.
func SetPowerMode(s PowerManaged, mode PowerMode) error {
	switch mode {
	case PowerSleep:
		return s.Sleep()
	case PowerSuspend:
		return s.Suspend()
	}
	return s.WakeUp()
}

// Reader acquires one reading and publishes it.
type Reader interface {
	framework.Named
	ReadData() error
}

// Sampler reads sensors every Interval ticks from the loop.
type Sampler struct {
	Readers  []Reader
	Interval ticks.Millis

	last    ticks.Millis
	started bool
}

// NewSampler creates a Sampler.
func NewSampler(interval ticks.Millis, readers ...Reader) *Sampler {
	return &Sampler{Readers: readers, Interval: interval}
}

// Control implements framework.Controller.
func (s *Sampler) Control(cc framework.ControlContext) error {
	now := cc.Millis()
	if s.started && !ticks.Expired(now, s.last, s.Interval) {
		return nil
	}
	s.started, s.last = true, now
	for _, r := range s.Readers {
		if err := r.ReadData(); err != nil {
			glog.Warningf("sensor %s: %v", r.Name(), err)
		}
	}
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (s *Sampler) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvSense, s)
}
