package comm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

func TestReaderDispatch(t *testing.T) {
	clock := ticks.NewManualClock(0)
	src := &Loopback{}
	var timeFrames, calibFrames, unrouted []string

	d := &Dispatcher{}
	d.Handle("T", HandleFrameFunc(func(cc framework.ControlContext, f Frame) {
		timeFrames = append(timeFrames, string(f.Data))
	})).Handle("C", HandleFrameFunc(func(cc framework.ControlContext, f Frame) {
		calibFrames = append(calibFrames, string(f.Data))
	}))

	reader := NewReader("uart", NewFramer(src, clock, DefaultFramerConfig()), d)
	loop := framework.NewLoop(clock).Add(reader)
	loop.AddController(framework.PrLvPostProc, framework.ControlFunc(func(cc framework.ControlContext) error {
		cc.Messages().ProcessMessages(framework.ProcessMessageFunc(func(mc framework.MessageProcessingContext) {
			if f, ok := mc.CurrentMessage().(Frame); ok {
				require.Equal(t, "uart", f.Stream)
				unrouted = append(unrouted, string(f.Data))
				mc.MessageTaken()
			}
		}))
		return nil
	}))

	src.WriteString("T1600000000;C0abc;XYZ;C1")
	loop.RunIteration(context.Background())
	require.Equal(t, []string{"T1600000000"}, timeFrames)
	require.Equal(t, []string{"C0abc"}, calibFrames)
	require.Equal(t, []string{"XYZ"}, unrouted)

	src.WriteString("def;")
	loop.RunIteration(context.Background())
	require.Equal(t, []string{"C0abc", "C1def"}, calibFrames)
}

func TestReaderFramesPerTick(t *testing.T) {
	clock := ticks.NewManualClock(0)
	src := &Loopback{}
	var count int
	reader := NewReader("uart", NewFramer(src, clock, DefaultFramerConfig()),
		HandleFrameFunc(func(framework.ControlContext, Frame) { count++ }))
	reader.FramesPerTick = 2
	loop := framework.NewLoop(clock).Add(reader)

	src.WriteString("a;b;c;")
	loop.RunIteration(context.Background())
	require.Equal(t, 2, count)
	loop.RunIteration(context.Background())
	require.Equal(t, 3, count)
}

func TestReaderDiscardsTruncated(t *testing.T) {
	clock := ticks.NewManualClock(0)
	src := &Loopback{}
	conf := DefaultFramerConfig()
	conf.Size = 2
	conf.Overflow = OverflowReject
	var frames []string
	reader := NewReader("uart", NewFramer(src, clock, conf),
		HandleFrameFunc(func(_ framework.ControlContext, f Frame) { frames = append(frames, string(f.Data)) }))
	loop := framework.NewLoop(clock).Add(reader)

	src.WriteString("abc;de;")
	loop.RunIteration(context.Background())
	require.Equal(t, []string{"de"}, frames)
}

func TestDispatcherFallback(t *testing.T) {
	var got []string
	d := &Dispatcher{Fallback: HandleFrameFunc(func(_ framework.ControlContext, f Frame) {
		got = append(got, string(f.Data))
	})}
	d.HandleFrame(nil, Frame{Data: []byte("Q")})
	require.Equal(t, []string{"Q"}, got)
}
