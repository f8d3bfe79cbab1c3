package timesync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

func TestHelperInLoop(t *testing.T) {
	clock := ticks.NewManualClock(0)
	tr := &fakeTransport{}
	h := NewHelper(tr, clock, DefaultConfig())
	src := &comm.Loopback{}
	d := (&comm.Dispatcher{}).Handle(Tag, h)
	loop := framework.NewLoop(clock).Add(
		comm.NewReader("uart", comm.NewFramer(src, clock, comm.DefaultFramerConfig()), d),
		h,
	)

	loop.RunIteration(context.Background())
	require.Equal(t, StateRequestPending, h.State())

	src.WriteString("T:1700000000;")
	loop.RunIteration(context.Background())
	require.Equal(t, SourceAuthoritative, h.Source())
	require.Equal(t, int64(1700000000), h.Now())

	loop.PostMessage(AuthoritativeTime{Payload: []byte("t 1800000000")})
	loop.RunIteration(context.Background())
	require.Equal(t, int64(1800000000), h.Now())

	loop.PostMessage(AuthoritativeTime{Epoch: 1900000000})
	loop.RunIteration(context.Background())
	require.Equal(t, int64(1900000000), h.Now())
	require.EqualValues(t, 3, h.Stats().AuthUpdates)
}
