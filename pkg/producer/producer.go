// Package producer fans sensor values out to registered receivers.
//
// Registrations are held in fixed capacity tables. Delivery is synchronous,
// in registration order, and filtered by the send option each receiver
// registered with. Receivers are borrowed: a producer never closes them.
package producer

import (
	"sync/atomic"

	"github.com/golang/glog"
)

// SendOption selects which of the values a source produces a receiver wants.
type SendOption int

// Common send options.
const (
	SendDefault SendOption = iota
	SendRaw
	SendDerived
)

// Validator is implemented by receivers which can tell whether they are
// usable. Register consults it so a typed nil pointer or nil func is
// refused like a nil interface.
type Validator interface {
	Valid() bool
}

func valid(r interface{}) bool {
	if r == nil {
		return false
	}
	if v, ok := r.(Validator); ok {
		return v.Valid()
	}
	return true
}

// DefaultCapacity is the default number of registrations per producer.
const DefaultCapacity = 10

// Receiver accepts scalar values.
type Receiver interface {
	Receive(slot int, value float64)
}

// ReceiveFunc is the func form of Receiver.
type ReceiveFunc func(slot int, value float64)

// Receive implements Receiver.
func (f ReceiveFunc) Receive(slot int, value float64) {
	f(slot, value)
}

// Valid implements Validator.
func (f ReceiveFunc) Valid() bool {
	return f != nil
}

type entry struct {
	receiver Receiver
	slot     int
	opt      SendOption
}

// Producer publishes scalar values.
type Producer struct {
	Name string

	entries    []entry
	deliveries uint64
}

// New creates a Producer holding at most capacity registrations.
func New(name string, capacity int) *Producer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Producer{Name: name, entries: make([]entry, 0, capacity)}
}

// Register appends a registration. It fails when the table is full or r
// is nil or not Valid.
func (p *Producer) Register(r Receiver, slot int, opt SendOption) bool {
	if !valid(r) {
		glog.Warningf("producer %s: nil receiver", p.Name)
		return false
	}
	if len(p.entries) == cap(p.entries) {
		glog.Warningf("producer %s: capacity %d reached", p.Name, cap(p.entries))
		return false
	}
	p.entries = append(p.entries, entry{receiver: r, slot: slot, opt: opt})
	return true
}

// ResetAll removes every registration.
func (p *Producer) ResetAll() {
	for i := range p.entries {
		p.entries[i] = entry{}
	}
	p.entries = p.entries[:0]
}

// Publish delivers value to each receiver registered with selector and
// returns the number of deliveries.
func (p *Producer) Publish(value float64, selector SendOption) int {
	n := 0
	for _, e := range p.entries {
		if e.opt == selector {
			e.receiver.Receive(e.slot, value)
			n++
		}
	}
	atomic.AddUint64(&p.deliveries, uint64(n))
	return n
}

// Len returns the number of registrations.
func (p *Producer) Len() int {
	return len(p.entries)
}

// Capacity returns the maximum number of registrations.
func (p *Producer) Capacity() int {
	return cap(p.entries)
}

// Deliveries returns the total number of values delivered. Safe for
// concurrent use.
func (p *Producer) Deliveries() uint64 {
	return atomic.LoadUint64(&p.deliveries)
}
