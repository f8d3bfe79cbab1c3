package gnss

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mahendrakumarshinde/iu.go/pkg/feature"
	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/producer"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

const (
	sentenceRMC = "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"
	sentenceGGA = "$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76"
)

func TestReceiverFromStream(t *testing.T) {
	clock := ticks.NewManualClock(0)
	src := &comm.Loopback{}
	r := NewReceiver()
	var fixTime time.Time
	r.OnTime = func(t time.Time) { fixTime = t }
	pos := feature.NewWindow("pos", 3, 1)
	motion := feature.NewWindow("motion", 2, 1)
	sats := feature.NewWindow("sats", 1, 1)
	require.True(t, r.Position.Register(pos, 0, producer.SendRaw))
	require.True(t, r.Motion.Register(motion, 0, producer.SendRaw))
	require.True(t, r.Satellites.Register(sats, 0, producer.SendRaw))

	loop := framework.NewLoop(clock).Add(comm.NewReader("gnss", comm.NewFramer(src, clock, FramerConfig()), r))
	src.WriteString(sentenceRMC + "\r\n" + sentenceGGA + "\r\nnoise\r\n")
	loop.RunIteration(context.Background())

	require.Equal(t, 2, r.Fixes())
	require.InDelta(t, 173.8, motion.Mean(SpeedKnots), 1e-9)
	require.InDelta(t, 231.8, motion.Mean(CourseDeg), 1e-9)
	require.InDelta(t, 53.36133, pos.Mean(Latitude), 1e-4)
	require.InDelta(t, -6.50562, pos.Mean(Longitude), 1e-4)
	require.InDelta(t, 61.7, pos.Mean(Altitude), 1e-9)
	require.InDelta(t, 8, sats.Mean(0), 1e-9)
	require.Equal(t, time.Date(1994, 6, 13, 22, 5, 16, 0, time.UTC), fixTime)
}

func TestReceiverRejectsBadChecksum(t *testing.T) {
	r := NewReceiver()
	require.Error(t, r.HandleSentence("$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*00"))
	require.Zero(t, r.Fixes())
}

func TestReceiverIgnoresVoidFix(t *testing.T) {
	r := NewReceiver()
	var calls int
	r.Motion.Register(&countingReceiver{calls: &calls}, 0, producer.SendRaw)
	require.NoError(t, r.HandleSentence("$GPRMC,220516,V,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*67"))
	require.Zero(t, calls)
}

type countingReceiver struct {
	calls *int
}

func (c *countingReceiver) BindSlot(slot, count int, values []float64) bool { return true }
func (c *countingReceiver) ReceiveArray(slot int, values []float64)         { *c.calls++ }
