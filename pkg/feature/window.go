// Package feature computes signal features over the values producers push.
package feature

import (
	"math"

	"github.com/golang/glog"
)

type ring struct {
	data  []float64
	next  int
	count int
}

func (r *ring) push(v float64) {
	r.data[r.next] = v
	r.next = (r.next + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// Window keeps the most recent values of each slot in a fixed size buffer.
// It accepts scalar values through Receive and arrays through ReceiveArray,
// where value i of an array bound at slot s lands in slot s+i.
type Window struct {
	Name string

	size  int
	slots []ring
}

// NewWindow creates a Window of slots slots, each holding size values.
// A size below 1 is raised to 1.
func NewWindow(name string, slots, size int) *Window {
	if size < 1 {
		glog.Warningf("window %s: size %d raised to 1", name, size)
		size = 1
	}
	if slots < 0 {
		slots = 0
	}
	w := &Window{Name: name, size: size, slots: make([]ring, slots)}
	for i := range w.slots {
		w.slots[i].data = make([]float64, size)
	}
	return w
}

// Valid implements producer.Validator.
func (w *Window) Valid() bool {
	return w != nil
}

// Slots returns the number of slots.
func (w *Window) Slots() int {
	return len(w.slots)
}

// Size returns the number of values kept per slot.
func (w *Window) Size() int {
	return w.size
}

// Receive implements producer.Receiver.
func (w *Window) Receive(slot int, value float64) {
	if slot < 0 || slot >= len(w.slots) {
		glog.Warningf("window %s: slot %d out of range", w.Name, slot)
		return
	}
	w.slots[slot].push(value)
}

// BindSlot implements producer.ArrayReceiver.
func (w *Window) BindSlot(slot, count int, values []float64) bool {
	if slot < 0 || count <= 0 || slot+count > len(w.slots) || len(values) < count {
		glog.Warningf("window %s: can't bind %d values at slot %d", w.Name, count, slot)
		return false
	}
	return true
}

// ReceiveArray implements producer.ArrayReceiver.
func (w *Window) ReceiveArray(slot int, values []float64) {
	for i, v := range values {
		w.Receive(slot+i, v)
	}
}

// Len returns how many values slot holds.
func (w *Window) Len(slot int) int {
	if slot < 0 || slot >= len(w.slots) {
		return 0
	}
	return w.slots[slot].count
}

// Full reports whether slot has size values.
func (w *Window) Full(slot int) bool {
	return w.Len(slot) == w.size
}

// Mean returns the average of slot, 0 when empty.
func (w *Window) Mean(slot int) float64 {
	n := w.Len(slot)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.slots[slot].data[:n] {
		sum += v
	}
	return sum / float64(n)
}

// RMS returns the root mean square of slot, 0 when empty.
func (w *Window) RMS(slot int) float64 {
	n := w.Len(slot)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.slots[slot].data[:n] {
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

// Reset empties every slot.
func (w *Window) Reset() {
	for i := range w.slots {
		w.slots[i].next, w.slots[i].count = 0, 0
	}
}
