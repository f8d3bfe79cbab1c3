// Package bridge connects the device runtime to MQTT peers. Sensor values
// are published to "<device>/data", events to "<device>/event", and time
// received on "<device>/time" is handed to the loop.
package bridge

import (
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/calibration"
	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l1/comm/mqtt"
	"github.com/mahendrakumarshinde/iu.go/pkg/l1/msgs"
	"github.com/mahendrakumarshinde/iu.go/pkg/timesync"
)

// Topic suffixes.
const (
	TopicData  = "data"
	TopicEvent = "event"
	TopicTime  = "time"
)

// Pubber publishes payloads, implemented by mqtt.Queue.
type Pubber interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Subber subscribes topics, implemented by mqtt.Queue.
type Subber interface {
	Sub(topic string, handler mqtt.Handler) *mqtt.Subscription
}

// TimeSource gives the timestamp of published values.
type TimeSource interface {
	Now() int64
}

// Publisher publishes values of a device.
type Publisher struct {
	Device string
	Queue  Pubber
	Time   TimeSource
	QoS    byte
}

// NewPublisher creates a Publisher.
func NewPublisher(device string, queue Pubber, ts TimeSource) *Publisher {
	return &Publisher{Device: device, Queue: queue, Time: ts}
}

// Topic returns the device topic with suffix.
func (p *Publisher) Topic(suffix string) string {
	return p.Device + "/" + suffix
}

// Publish encodes msg and publishes it without waiting for completion.
func (p *Publisher) Publish(suffix string, msg msgs.SerializableMessage) error {
	data, err := msgs.Encode(msg)
	if err != nil {
		return err
	}
	p.Queue.PubWith(p.Topic(suffix), data, p.QoS, false)
	return nil
}

func (p *Publisher) now() int64 {
	if p.Time == nil {
		return 0
	}
	return p.Time.Now()
}

// Source returns a Channel publishing values of the named source.
func (p *Publisher) Source(name string) *Channel {
	return &Channel{publisher: p, source: name}
}

// PublishCalibration publishes a completed calibration as an event.
func (p *Publisher) PublishCalibration(res calibration.Result) {
	err := p.Publish(TopicEvent, &msgs.Calibration{
		Device:     p.Device,
		Parts:      res.Parts,
		DurationMs: uint32(res.Duration),
	})
	if err != nil {
		glog.Errorf("publish calibration: %v", err)
	}
}

// Channel is a producer receiver which publishes what it receives.
type Channel struct {
	publisher *Publisher
	source    string
}

// Valid implements producer.Validator.
func (c *Channel) Valid() bool {
	return c != nil && c.publisher != nil
}

// Receive implements producer.Receiver.
func (c *Channel) Receive(slot int, value float64) {
	err := c.publisher.Publish(TopicData, &msgs.SensorValue{
		Device:    c.publisher.Device,
		Source:    c.source,
		Slot:      int32(slot),
		Timestamp: c.publisher.now(),
		Value:     value,
	})
	if err != nil {
		glog.Errorf("publish %s: %v", c.source, err)
	}
}

// BindSlot implements producer.ArrayReceiver.
func (c *Channel) BindSlot(slot, count int, values []float64) bool {
	return true
}

// ReceiveArray implements producer.ArrayReceiver.
func (c *Channel) ReceiveArray(slot int, values []float64) {
	err := c.publisher.Publish(TopicData, &msgs.SensorArray{
		Device:    c.publisher.Device,
		Source:    c.source,
		Slot:      int32(slot),
		Timestamp: c.publisher.now(),
		Values:    values,
	})
	if err != nil {
		glog.Errorf("publish %s: %v", c.source, err)
	}
}

// SubscribeTime forwards payloads of "<device>/time" to the loop as
// timesync.AuthoritativeTime. Typed TimeSync messages and text payloads
// like "T:1700000000" are accepted.
func SubscribeTime(q Subber, device string, lc framework.LoopControl) *mqtt.Subscription {
	return q.Sub(device+"/"+TopicTime, func(topic string, payload []byte) {
		lc.PostMessage(TimeMessage(payload))
		lc.TriggerNext()
	})
}

// TimeMessage converts a time payload into a loop message.
func TimeMessage(payload []byte) timesync.AuthoritativeTime {
	if msg, err := msgs.DecodeMessage(payload); err == nil {
		if ts, ok := msg.(*msgs.TimeSync); ok {
			return timesync.AuthoritativeTime{Epoch: ts.Epoch}
		}
	}
	return timesync.AuthoritativeTime{Payload: append([]byte(nil), payload...)}
}
