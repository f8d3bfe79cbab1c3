package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahendrakumarshinde/iu.go/pkg/producer"
)

func TestWindowStats(t *testing.T) {
	w := NewWindow("vib", 1, 4)
	require.Zero(t, w.Mean(0))
	require.Zero(t, w.RMS(0))
	for _, v := range []float64{3, -3, 3, -3} {
		w.Receive(0, v)
	}
	require.True(t, w.Full(0))
	require.InDelta(t, 0, w.Mean(0), 1e-9)
	require.InDelta(t, 3, w.RMS(0), 1e-9)

	// oldest values are replaced
	w.Receive(0, 5)
	w.Receive(0, 5)
	require.Equal(t, 4, w.Len(0))
	require.InDelta(t, 2.5, w.Mean(0), 1e-9)
	require.InDelta(t, math.Sqrt((9+9+25+25)/4.0), w.RMS(0), 1e-9)

	w.Reset()
	require.Zero(t, w.Len(0))
}

func TestWindowOutOfRange(t *testing.T) {
	w := NewWindow("vib", 2, 2)
	w.Receive(2, 1)
	w.Receive(-1, 1)
	require.Zero(t, w.Len(0))
	require.Zero(t, w.Len(1))
	require.Zero(t, w.Len(5))
}

func TestWindowZeroSize(t *testing.T) {
	w := NewWindow("accel", 3, 0)
	require.Equal(t, 1, w.Size())
	require.NotPanics(t, func() {
		w.Receive(0, 1)
		w.Receive(0, 2)
	})
	require.Equal(t, 1, w.Len(0))
	require.True(t, w.Full(0))
	require.Equal(t, 2.0, w.Mean(0))
}

func TestNilWindowRefused(t *testing.T) {
	var w *Window
	require.False(t, producer.New("temp", 1).Register(w, 0, producer.SendRaw))
	require.False(t, producer.NewArray("accel", 1, 3).Register(w, 0, producer.SendRaw))
}

func TestWindowAsReceivers(t *testing.T) {
	w := NewWindow("accel", 4, 8)
	scalar := producer.New("temp", 2)
	require.True(t, scalar.Register(w, 3, producer.SendDefault))
	array := producer.NewArray("xyz", 2, 3)
	require.True(t, array.Register(w, 0, producer.SendRaw))
	// does not fit
	require.False(t, array.Register(w, 2, producer.SendRaw))

	array.Publish([]float64{1, 2, 3}, producer.SendRaw)
	array.Publish([]float64{3, 4, 5}, producer.SendRaw)
	scalar.Publish(21.5, producer.SendDefault)

	require.InDelta(t, 2, w.Mean(0), 1e-9)
	require.InDelta(t, 3, w.Mean(1), 1e-9)
	require.InDelta(t, 4, w.Mean(2), 1e-9)
	require.InDelta(t, 21.5, w.Mean(3), 1e-9)
}
