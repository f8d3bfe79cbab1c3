package sh

import (
	"context"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/calibration"
	"github.com/mahendrakumarshinde/iu.go/pkg/config"
	"github.com/mahendrakumarshinde/iu.go/pkg/feature"
	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/producer"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
	"github.com/mahendrakumarshinde/iu.go/pkg/timesync"
)

// Bench is a device runtime driven by hand: a manual clock, an in-memory
// serial stream and an in-memory NTP server. The loop only runs when the
// bench is stepped.
type Bench struct {
	Clock       *ticks.ManualClock
	Serial      *comm.Loopback
	Framer      *comm.Framer
	Loop        *framework.Loop
	Time        *timesync.Helper
	NTP         *timesync.LoopbackTransport
	Calibration *calibration.Session
	Battery     *producer.Producer
	Window      *feature.Window

	// Unrouted keeps frames no handler claimed.
	Unrouted []comm.Frame
	// Calibrations keeps completed calibrations.
	Calibrations []calibration.Result
}

// NewBench creates a Bench from conf.
func NewBench(conf *config.Config) *Bench {
	b := &Bench{
		Clock:   ticks.NewManualClock(0),
		Serial:  &comm.Loopback{},
		NTP:     &timesync.LoopbackTransport{},
		Battery: producer.New("battery", producer.DefaultCapacity),
		Window:  feature.NewWindow("battery", 2, conf.Sensors.WindowSize),
	}
	b.Framer = comm.NewFramer(b.Serial, b.Clock, conf.SerialFramer())
	var transport timesync.Transport
	if conf.NTP.Enabled {
		transport = b.NTP
	}
	b.Time = timesync.NewHelper(transport, b.Clock, conf.NTP.Config)
	b.Calibration = calibration.NewSession(b.Clock, conf.Sensors.CalibrationParts, conf.Sensors.CalibrationTimeout)
	b.Calibration.OnComplete = func(res calibration.Result) {
		b.Calibrations = append(b.Calibrations, res)
	}
	b.Battery.Register(b.Window, 0, producer.SendRaw)
	b.Battery.Register(b.Window, 1, producer.SendDerived)

	dispatcher := (&comm.Dispatcher{}).
		Handle(timesync.Tag, b.Time).
		Handle(calibration.Tag, b.Calibration)
	dispatcher.Fallback = comm.HandleFrameFunc(func(_ framework.ControlContext, f comm.Frame) {
		glog.V(2).Infof("bench: unrouted frame %q", f.Data)
		b.Unrouted = append(b.Unrouted, f)
	})
	b.Loop = framework.NewLoop(b.Clock).Add(
		comm.NewReader("serial", b.Framer, dispatcher),
		b.Time,
		b.Calibration,
	)
	return b
}

// Step runs one loop iteration.
func (b *Bench) Step() {
	b.Loop.RunIteration(context.Background())
}

// Feed queues data on the serial stream and steps.
func (b *Bench) Feed(data string) {
	b.Serial.WriteString(data)
	b.Step()
}

// Advance moves the clock by ms and steps.
func (b *Bench) Advance(ms ticks.Millis) ticks.Millis {
	now := b.Clock.Advance(ms)
	b.Step()
	return now
}

// RespondNTP queues an NTP response and steps.
func (b *Bench) RespondNTP(unix int64) {
	b.NTP.Respond(unix)
	b.Step()
}

// TimeStatus summarizes the time helper.
type TimeStatus struct {
	Now       int64        `json:"now"`
	Tick      ticks.Millis `json:"tick"`
	Source    string       `json:"source"`
	State     string       `json:"state"`
	Requests  int          `json:"requests"`
	Reference int64        `json:"reference"`
}

// TimeStatus returns the state of the time helper.
func (b *Bench) TimeStatus() TimeStatus {
	return TimeStatus{
		Now:       b.Time.Now(),
		Tick:      b.Clock.Millis(),
		Source:    b.Time.Source().String(),
		State:     b.Time.State().String(),
		Requests:  b.NTP.Sent,
		Reference: b.Time.Reference().Epoch,
	}
}
