// Package gnss turns NMEA sentences from a GNSS receiver into producer
// values.
package gnss

import (
	"bytes"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/producer"
)

// Values published by Position, in order.
const (
	Latitude = iota
	Longitude
	Altitude
	positionValues
)

// Values published by Motion, in order.
const (
	SpeedKnots = iota
	CourseDeg
	motionValues
)

// FramerConfig returns a framer configuration for NMEA lines.
func FramerConfig() comm.FramerConfig {
	return comm.FramerConfig{
		Size:             128,
		StopByte:         '\n',
		ReceptionTimeout: 1000,
	}
}

// Receiver parses NMEA frames.
type Receiver struct {
	// Position publishes latitude, longitude and altitude from GGA.
	Position *producer.ArrayProducer
	// Motion publishes speed and course from RMC.
	Motion *producer.ArrayProducer
	// Satellites publishes the number of satellites in use.
	Satellites *producer.Producer
	// OnTime receives the UTC time of each valid RMC sentence.
	OnTime func(time.Time)

	lastErr error
	fixes   int
}

// NewReceiver creates a Receiver.
func NewReceiver() *Receiver {
	return &Receiver{
		Position:   producer.NewArray("gnss-position", producer.DefaultCapacity, positionValues),
		Motion:     producer.NewArray("gnss-motion", producer.DefaultCapacity, motionValues),
		Satellites: producer.New("gnss-satellites", producer.DefaultCapacity),
	}
}

// Fixes returns the number of valid fixes parsed.
func (r *Receiver) Fixes() int {
	return r.fixes
}

// HandleFrame implements comm.FrameHandler.
func (r *Receiver) HandleFrame(_ framework.ControlContext, f comm.Frame) {
	line := string(bytes.TrimSpace(f.Data))
	if len(line) == 0 || line[0] != '$' {
		return
	}
	if err := r.HandleSentence(line); err != nil {
		glog.V(2).Infof("%s: %v", f.Stream, err)
	}
}

// HandleSentence parses one sentence.
func (r *Receiver) HandleSentence(line string) error {
	s, err := nmea.Parse(line)
	if err != nil {
		r.lastErr = err
		return err
	}
	switch m := s.(type) {
	case nmea.RMC:
		if m.Validity != nmea.ValidRMC {
			return nil
		}
		r.fixes++
		r.Motion.Publish([]float64{m.Speed, m.Course}, producer.SendRaw)
		if r.OnTime != nil && m.Date.Valid && m.Time.Valid {
			r.OnTime(utcTime(m.Date, m.Time))
		}
	case nmea.GGA:
		if m.FixQuality == nmea.Invalid {
			return nil
		}
		r.fixes++
		r.Position.Publish([]float64{m.Latitude, m.Longitude, m.Altitude}, producer.SendRaw)
		r.Satellites.Publish(float64(m.NumSatellites), producer.SendRaw)
	}
	return nil
}

// two digit years from 80 on are 19xx
func utcTime(d nmea.Date, t nmea.Time) time.Time {
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
