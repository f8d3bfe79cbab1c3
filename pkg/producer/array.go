package producer

import (
	"sync/atomic"

	"github.com/golang/glog"
)

// ArrayReceiver accepts fixed size arrays of values.
type ArrayReceiver interface {
	// BindSlot attaches slot to the producer's backing storage of count
	// values. A receiver refusing the binding returns false.
	BindSlot(slot, count int, values []float64) bool
	// ReceiveArray is called after the values of slot were updated.
	ReceiveArray(slot int, values []float64)
}

type arrayEntry struct {
	receiver ArrayReceiver
	slot     int
	opt      SendOption
}

// ArrayProducer publishes arrays of a fixed count of values. Receivers see
// the producer's own storage, which is overwritten on each Publish.
type ArrayProducer struct {
	Name string

	values     []float64
	entries    []arrayEntry
	deliveries uint64
}

// NewArray creates an ArrayProducer of count values.
func NewArray(name string, capacity, count int) *ArrayProducer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ArrayProducer{
		Name:    name,
		values:  make([]float64, count),
		entries: make([]arrayEntry, 0, capacity),
	}
}

// Register appends a registration after r accepted the slot binding. It
// fails when the table is full, r is nil or not Valid, or the binding is
// refused.
func (p *ArrayProducer) Register(r ArrayReceiver, slot int, opt SendOption) bool {
	if !valid(r) {
		glog.Warningf("producer %s: nil receiver", p.Name)
		return false
	}
	if len(p.entries) == cap(p.entries) {
		glog.Warningf("producer %s: capacity %d reached", p.Name, cap(p.entries))
		return false
	}
	if !r.BindSlot(slot, len(p.values), p.values) {
		glog.Warningf("producer %s: receiver refused slot %d", p.Name, slot)
		return false
	}
	p.entries = append(p.entries, arrayEntry{receiver: r, slot: slot, opt: opt})
	return true
}

// ResetAll removes every registration.
func (p *ArrayProducer) ResetAll() {
	for i := range p.entries {
		p.entries[i] = arrayEntry{}
	}
	p.entries = p.entries[:0]
}

// Publish copies values into the backing storage and notifies each
// receiver registered with selector. Extra values are ignored and missing
// ones keep their previous content.
func (p *ArrayProducer) Publish(values []float64, selector SendOption) int {
	if len(values) != len(p.values) {
		glog.V(2).Infof("producer %s: %d values published, %d expected", p.Name, len(values), len(p.values))
	}
	copy(p.values, values)
	n := 0
	for _, e := range p.entries {
		if e.opt == selector {
			e.receiver.ReceiveArray(e.slot, p.values)
			n++
		}
	}
	atomic.AddUint64(&p.deliveries, uint64(n))
	return n
}

// Values returns the backing storage.
func (p *ArrayProducer) Values() []float64 {
	return p.values
}

// Count returns the number of values per array.
func (p *ArrayProducer) Count() int {
	return len(p.values)
}

// Len returns the number of registrations.
func (p *ArrayProducer) Len() int {
	return len(p.entries)
}

// Capacity returns the maximum number of registrations.
func (p *ArrayProducer) Capacity() int {
	return cap(p.entries)
}

// Deliveries returns the total number of arrays delivered. Safe for
// concurrent use.
func (p *ArrayProducer) Deliveries() uint64 {
	return atomic.LoadUint64(&p.deliveries)
}
