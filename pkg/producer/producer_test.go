package producer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type delivery struct {
	receiver string
	slot     int
	value    float64
}

type recorder struct {
	log *[]delivery
}

func (r recorder) named(name string) Receiver {
	return ReceiveFunc(func(slot int, value float64) {
		*r.log = append(*r.log, delivery{receiver: name, slot: slot, value: value})
	})
}

func TestPublishFiltersBySelector(t *testing.T) {
	var log []delivery
	rec := recorder{log: &log}
	p := New("battery", 3)
	require.True(t, p.Register(rec.named("a"), 0, SendRaw))
	require.True(t, p.Register(rec.named("b"), 2, SendRaw))
	require.True(t, p.Register(rec.named("c"), 1, SendDerived))

	require.Equal(t, 2, p.Publish(3.3, SendRaw))
	require.Equal(t, []delivery{{"a", 0, 3.3}, {"b", 2, 3.3}}, log)

	log = nil
	require.Equal(t, 1, p.Publish(1.2, SendDerived))
	require.Equal(t, []delivery{{"c", 1, 1.2}}, log)

	log = nil
	require.Zero(t, p.Publish(0, SendDefault))
	require.Empty(t, log)
	require.EqualValues(t, 3, p.Deliveries())
}

func TestRegisterCapacity(t *testing.T) {
	var log []delivery
	rec := recorder{log: &log}
	p := New("temp", 2)
	require.True(t, p.Register(rec.named("a"), 0, SendDefault))
	require.True(t, p.Register(rec.named("b"), 1, SendDefault))
	require.False(t, p.Register(rec.named("c"), 2, SendDefault))
	require.Equal(t, 2, p.Len())
	require.Equal(t, 2, p.Capacity())

	p.Publish(1, SendDefault)
	require.Equal(t, []delivery{{"a", 0, 1}, {"b", 1, 1}}, log)
}

func TestRegisterNil(t *testing.T) {
	p := New("temp", 0)
	require.Equal(t, DefaultCapacity, p.Capacity())
	require.False(t, p.Register(nil, 0, SendDefault))
	require.False(t, p.Register(ReceiveFunc(nil), 0, SendDefault))
	require.False(t, p.Register((*checkedReceiver)(nil), 0, SendDefault))
	require.Zero(t, p.Len())

	require.True(t, p.Register(&checkedReceiver{}, 0, SendDefault))
	require.Equal(t, 1, p.Publish(2, SendDefault))
}

type checkedReceiver struct {
	values []float64
}

func (r *checkedReceiver) Valid() bool { return r != nil }

func (r *checkedReceiver) Receive(slot int, value float64) {
	r.values = append(r.values, value)
}

func (r *checkedReceiver) BindSlot(slot, count int, values []float64) bool { return true }

func (r *checkedReceiver) ReceiveArray(slot int, values []float64) {
	r.values = append(r.values, values...)
}

func TestArrayRegisterTypedNil(t *testing.T) {
	p := NewArray("accel", 2, 3)
	require.False(t, p.Register((*checkedReceiver)(nil), 0, SendRaw))
	require.Zero(t, p.Len())
	require.Zero(t, p.Publish([]float64{1, 2, 3}, SendRaw))
}

func TestResetAll(t *testing.T) {
	var log []delivery
	rec := recorder{log: &log}
	p := New("temp", 1)
	require.True(t, p.Register(rec.named("a"), 0, SendDefault))
	p.ResetAll()
	p.ResetAll()
	require.Zero(t, p.Len())
	require.Zero(t, p.Publish(1, SendDefault))
	require.True(t, p.Register(rec.named("b"), 0, SendDefault))
	p.Publish(2, SendDefault)
	require.Equal(t, []delivery{{"b", 0, 2}}, log)
}

type arrayRecorder struct {
	accept bool
	bound  map[int][]float64
	got    [][]float64
}

func (r *arrayRecorder) BindSlot(slot, count int, values []float64) bool {
	if !r.accept {
		return false
	}
	if r.bound == nil {
		r.bound = make(map[int][]float64)
	}
	r.bound[slot] = values
	return len(values) == count
}

func (r *arrayRecorder) ReceiveArray(slot int, values []float64) {
	r.got = append(r.got, append([]float64(nil), values...))
}

func TestArrayRegisterBinding(t *testing.T) {
	p := NewArray("accel", 2, 3)
	ok := &arrayRecorder{accept: true}
	refused := &arrayRecorder{}

	require.True(t, p.Register(ok, 4, SendRaw))
	require.Len(t, ok.bound[4], 3)
	require.False(t, p.Register(refused, 0, SendRaw))
	require.Equal(t, 1, p.Len())
	require.False(t, p.Register(nil, 0, SendRaw))

	require.True(t, p.Register(&arrayRecorder{accept: true}, 1, SendRaw))
	require.False(t, p.Register(&arrayRecorder{accept: true}, 2, SendRaw))
	require.Equal(t, 2, p.Len())
}

func TestArrayPublish(t *testing.T) {
	p := NewArray("accel", 3, 3)
	a := &arrayRecorder{accept: true}
	b := &arrayRecorder{accept: true}
	require.True(t, p.Register(a, 0, SendRaw))
	require.True(t, p.Register(b, 0, SendDerived))

	require.Equal(t, 1, p.Publish([]float64{1, 2, 3}, SendRaw))
	require.Equal(t, [][]float64{{1, 2, 3}}, a.got)
	require.Empty(t, b.got)
	// bound storage tracks the producer's values
	require.Equal(t, []float64{1, 2, 3}, a.bound[0])

	require.Equal(t, 1, p.Publish([]float64{9}, SendDerived))
	require.Equal(t, [][]float64{{9, 2, 3}}, b.got)
	require.Equal(t, []float64{9, 2, 3}, p.Values())
	require.Equal(t, 3, p.Count())
	require.EqualValues(t, 2, p.Deliveries())
}
