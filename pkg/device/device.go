// Package device assembles the runtime of an IU board from its
// configuration: the host and BLE streams, the time helper, calibration,
// sensors and the MQTT bridge.
package device

import (
	"time"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/bridge"
	"github.com/mahendrakumarshinde/iu.go/pkg/calibration"
	"github.com/mahendrakumarshinde/iu.go/pkg/config"
	"github.com/mahendrakumarshinde/iu.go/pkg/feature"
	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/metrics"
	"github.com/mahendrakumarshinde/iu.go/pkg/producer"
	"github.com/mahendrakumarshinde/iu.go/pkg/sensors"
	"github.com/mahendrakumarshinde/iu.go/pkg/sensors/bmx055"
	"github.com/mahendrakumarshinde/iu.go/pkg/sensors/gnss"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
	"github.com/mahendrakumarshinde/iu.go/pkg/timesync"
)

// Queue is the peer messaging used by the bridge, implemented by
// mqtt.Queue.
type Queue interface {
	bridge.Pubber
	bridge.Subber
}

// Parts are the opened peripherals. Any of them may be nil.
type Parts struct {
	Serial comm.ByteSource
	BLE    comm.ByteSource
	GNSS   comm.ByteSource
	NTP    timesync.Transport
	Queue  Queue
	Accel  *bmx055.Accel
}

// Device is the assembled runtime.
type Device struct {
	Config *config.Config
	Clock  ticks.Clock

	Time        *timesync.Helper
	Calibration *calibration.Session
	Dispatcher  *comm.Dispatcher
	Readers     []*comm.Reader
	GNSS        *gnss.Receiver
	Accel       *bmx055.Accel
	Sampler     *sensors.Sampler
	Window      *feature.Window
	Publisher   *bridge.Publisher
	Metrics     *metrics.Registry

	queue Queue
	extra []framework.Runnable
}

// New assembles a Device from conf and the opened parts.
func New(conf *config.Config, clock ticks.Clock, parts Parts) *Device {
	d := &Device{
		Config:      conf,
		Clock:       clock,
		Time:        timesync.NewHelper(parts.NTP, clock, conf.NTP.Config),
		Calibration: calibration.NewSession(clock, conf.Sensors.CalibrationParts, conf.Sensors.CalibrationTimeout),
		Metrics:     metrics.NewRegistry(),
		queue:       parts.Queue,
	}
	if !conf.NTP.Enabled {
		d.Time.Transport = nil
	}
	if parts.Queue != nil {
		d.Publisher = bridge.NewPublisher(conf.Device.ID, parts.Queue, d.Time)
		d.Publisher.QoS = conf.MQTT.QoS
		d.Calibration.OnComplete = d.Publisher.PublishCalibration
	}
	d.Metrics.AddTimeHelper(d.Time)
	d.Metrics.AddCalibration(d.Calibration)

	d.Dispatcher = (&comm.Dispatcher{}).
		Handle(timesync.Tag, d.Time).
		Handle(calibration.Tag, d.Calibration)
	d.Dispatcher.Fallback = comm.HandleFrameFunc(func(_ framework.ControlContext, f comm.Frame) {
		glog.V(1).Infof("%s: unhandled frame %q", f.Stream, f.Data)
	})
	if parts.Serial != nil {
		d.addStream("serial", parts.Serial, conf.SerialFramer(), d.Dispatcher)
	}
	if parts.BLE != nil {
		d.addStream("ble", parts.BLE, conf.BLEFramer(), d.Dispatcher)
	}
	if parts.GNSS != nil {
		d.GNSS = gnss.NewReceiver()
		d.GNSS.OnTime = func(t time.Time) {
			glog.V(3).Infof("gnss time %s", t)
		}
		d.addStream("gnss", parts.GNSS, gnss.FramerConfig(), d.GNSS)
		d.Metrics.AddProducer("gnss-position", d.GNSS.Position)
		if d.Publisher != nil {
			d.GNSS.Position.Register(d.Publisher.Source(d.GNSS.Position.Name), 0, producer.SendRaw)
			d.GNSS.Motion.Register(d.Publisher.Source(d.GNSS.Motion.Name), 0, producer.SendRaw)
			d.GNSS.Satellites.Register(d.Publisher.Source(d.GNSS.Satellites.Name), 0, producer.SendRaw)
		}
	}
	if parts.Accel != nil {
		d.Accel = parts.Accel
		d.Window = feature.NewWindow(d.Accel.Name(), d.Accel.Producer.Count(), conf.Sensors.WindowSize)
		d.Accel.Producer.Register(d.Window, 0, producer.SendRaw)
		if d.Publisher != nil {
			d.Accel.Producer.Register(d.Publisher.Source(d.Accel.Name()), 0, producer.SendRaw)
		}
		d.Sampler = sensors.NewSampler(conf.Sensors.SampleInterval, d.Accel)
		d.Metrics.AddProducer(d.Accel.Name(), d.Accel.Producer)
	}
	if conf.Metrics.Addr != "" {
		d.extra = append(d.extra, framework.NamedRun("metrics",
			&metrics.Server{Addr: conf.Metrics.Addr, Registry: d.Metrics}))
	}
	return d
}

func (d *Device) addStream(name string, src comm.ByteSource, conf comm.FramerConfig, h comm.FrameHandler) {
	f := comm.NewFramer(src, d.Clock, conf)
	d.Readers = append(d.Readers, comm.NewReader(name, f, h))
	d.Metrics.AddFramer(name, f)
}

// AddToLoop implements framework.LoopAdder.
func (d *Device) AddToLoop(l *framework.Loop) {
	for _, r := range d.Readers {
		l.Add(r)
	}
	l.Add(d.Time, d.Calibration)
	if d.Sampler != nil {
		l.Add(d.Sampler)
	}
	if d.queue != nil {
		bridge.SubscribeTime(d.queue, d.Config.Device.ID, l)
		if runner, ok := d.queue.(framework.Runnable); ok {
			l.AddRunnable(framework.NamedRun("mqtt", runner))
		}
	}
	l.AddRunnable(d.extra...)
}
