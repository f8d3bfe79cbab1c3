package main

import (
	"flag"
	"io"

	"github.com/golang/glog"
	serial "github.com/jacobsa/go-serial/serial"
	"periph.io/x/conn/v3/i2c/i2creg"
	host "periph.io/x/host/v3"

	"github.com/mahendrakumarshinde/iu.go/pkg/config"
	"github.com/mahendrakumarshinde/iu.go/pkg/device"
	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/l1/comm/mqtt"
	"github.com/mahendrakumarshinde/iu.go/pkg/l1/comm/websocket"
	"github.com/mahendrakumarshinde/iu.go/pkg/sensors/bmx055"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
	"github.com/mahendrakumarshinde/iu.go/pkg/timesync"
)

func init() {
	config.SetupFlags()
}

func openSerial(name string, baud uint) io.ReadWriteCloser {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        name,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		glog.Exitf("open %s: %v", name, err)
	}
	return port
}

func main() {
	flag.Parse()
	conf := config.NewConfig().MustValidate()
	glog.V(1).Infof("config:\n%s", conf)

	var parts device.Parts
	if conf.Serial.Port != "" {
		port := openSerial(conf.Serial.Port, conf.Serial.Baud)
		defer port.Close()
		parts.Serial = comm.NewPort(port)
	}
	if conf.GNSS.Port != "" {
		port := openSerial(conf.GNSS.Port, conf.GNSS.Baud)
		defer port.Close()
		parts.GNSS = comm.NewPort(port)
	}
	if conf.BLE.URL != "" {
		conn, err := websocket.Dial(conf.BLE.URL)
		if err != nil {
			glog.Exitf("ble bridge %s: %v", conf.BLE.URL, err)
		}
		defer conn.Close()
		parts.BLE = comm.NewPort(conn)
	}
	if conf.NTP.Enabled {
		transport, err := timesync.NewUDPTransport()
		if err != nil {
			glog.Exitf("ntp: %v", err)
		}
		parts.NTP = transport
	}
	if conf.MQTT.URL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTT.URL, conf.Device.ID)
		if err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		defer q.Close()
		parts.Queue = q
	}
	if conf.Sensors.I2CBus != "" {
		if _, err := host.Init(); err != nil {
			glog.Exitf("periph: %v", err)
		}
		bus, err := i2creg.Open(conf.Sensors.I2CBus)
		if err != nil {
			glog.Exitf("i2c %s: %v", conf.Sensors.I2CBus, err)
		}
		defer bus.Close()
		rng, _ := conf.AccelRange()
		accel := bmx055.New(bus, conf.Sensors.AccelAddr, rng)
		if err := accel.Init(); err != nil {
			glog.Exitf("accel: %v", err)
		}
		defer accel.Suspend()
		parts.Accel = accel
	}

	clock := ticks.NewSystemClock()
	dev := device.New(conf, clock, parts)
	loop := framework.NewLoop(clock).Add(dev)
	loop.Interval = conf.Loop.IntervalMs.Duration()

	err := framework.NewRunner().HandleSignals().Go(framework.NamedRun("loop", loop)).Wait()
	if err != nil {
		glog.Errorf("stopped: %v", err)
	}
}
