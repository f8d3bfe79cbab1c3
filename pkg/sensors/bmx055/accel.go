// Package bmx055 drives the accelerometer of a Bosch BMX055 over I2C.
package bmx055

import (
	"fmt"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/i2c"

	"github.com/mahendrakumarshinde/iu.go/pkg/producer"
	"github.com/mahendrakumarshinde/iu.go/pkg/sensors"
)

// DefaultAddr is the accelerometer address with SDO1 low.
const DefaultAddr uint16 = 0x18

// ChipID is the content of the chip id register.
const ChipID = 0xFA

const (
	regChipID = 0x00
	regData   = 0x02
	regRange  = 0x0F
	regPMULPW = 0x11

	pmuNormal   = 0x00
	pmuLowPower = 0x40
	pmuSuspend  = 0x80
)

// Range is the full scale of the accelerometer.
type Range byte

// Ranges with their register values.
const (
	Range2G  Range = 0x03
	Range4G  Range = 0x05
	Range8G  Range = 0x08
	Range16G Range = 0x0C
)

// resolution in g per LSB.
func (r Range) resolution() float64 {
	switch r {
	case Range4G:
		return 0.00195
	case Range8G:
		return 0.00391
	case Range16G:
		return 0.00781
	}
	return 0.00098
}

// Accel is the accelerometer. Readings in g are published as 3 values
// with producer.SendRaw.
type Accel struct {
	Producer *producer.ArrayProducer

	dev   *i2c.Dev
	rng   Range
	mode  sensors.PowerMode
	buf   [6]byte
	value [3]float64
}

// New creates an Accel on bus. Init must be called before reading.
func New(bus i2c.Bus, addr uint16, rng Range) *Accel {
	return &Accel{
		Producer: producer.NewArray("accel", producer.DefaultCapacity, 3),
		dev:      &i2c.Dev{Bus: bus, Addr: addr},
		rng:      rng,
	}
}

// Name implements sensors.Reader.
func (a *Accel) Name() string {
	return "bmx055-accel"
}

// Init checks the chip id and sets the range.
func (a *Accel) Init() error {
	id := make([]byte, 1)
	if err := a.dev.Tx([]byte{regChipID}, id); err != nil {
		return err
	}
	if id[0] != ChipID {
		return fmt.Errorf("bmx055: unexpected chip id 0x%02x", id[0])
	}
	if err := a.write(regRange, byte(a.rng)); err != nil {
		return err
	}
	return a.WakeUp()
}

func (a *Accel) write(reg, val byte) error {
	return a.dev.Tx([]byte{reg, val}, nil)
}

// Mode returns the power mode last set.
func (a *Accel) Mode() sensors.PowerMode {
	return a.mode
}

func (a *Accel) setPMU(val byte, mode sensors.PowerMode) error {
	if err := a.write(regPMULPW, val); err != nil {
		return err
	}
	glog.V(2).Infof("bmx055: power mode %s", mode)
	a.mode = mode
	return nil
}

// WakeUp implements sensors.PowerManaged.
func (a *Accel) WakeUp() error {
	return a.setPMU(pmuNormal, sensors.PowerActive)
}

// Sleep implements sensors.PowerManaged.
func (a *Accel) Sleep() error {
	return a.setPMU(pmuLowPower, sensors.PowerSleep)
}

// Suspend implements sensors.PowerManaged.
func (a *Accel) Suspend() error {
	return a.setPMU(pmuSuspend, sensors.PowerSuspend)
}

// ReadData implements sensors.Reader. Nothing is read unless active.
func (a *Accel) ReadData() error {
	if a.mode != sensors.PowerActive {
		return nil
	}
	if err := a.dev.Tx([]byte{regData}, a.buf[:]); err != nil {
		return err
	}
	res := a.rng.resolution()
	for i := range a.value {
		// 12 bit, left aligned, LSB first
		raw := int16(uint16(a.buf[2*i+1])<<8|uint16(a.buf[2*i])) >> 4
		a.value[i] = float64(raw) * res
	}
	a.Producer.Publish(a.value[:], producer.SendRaw)
	return nil
}
