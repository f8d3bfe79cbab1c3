package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

func TestLoopPriorityOrder(t *testing.T) {
	clock := ticks.NewManualClock(100)
	loop := NewLoop(clock)
	var order []int
	record := func(n int) Controller {
		return ControlFunc(func(cc ControlContext) error {
			require.Equal(t, ticks.Millis(100), cc.Millis())
			order = append(order, n)
			return nil
		})
	}
	loop.AddController(PrLvPostProc, record(3))
	loop.AddController(PrLvTop, record(0))
	loop.AddController(PrLvControl, record(1), record(2))
	loop.RunIteration(context.Background())
	require.Equal(t, []int{0, 1, 2, 3}, order)
	require.EqualValues(t, 1, loop.Iterations())
}

func TestLoopControllerErrorDoesNotStop(t *testing.T) {
	loop := NewLoop(ticks.NewManualClock(0))
	var ran bool
	loop.AddController(PrLvTop, ControlFunc(func(ControlContext) error { return errors.New("boom") }))
	loop.AddController(PrLvLow, ControlFunc(func(ControlContext) error { ran = true; return nil }))
	loop.RunIteration(context.Background())
	require.True(t, ran)
}

func TestLoopMessages(t *testing.T) {
	loop := NewLoop(ticks.NewManualClock(0))
	var seen, left []Message
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if n, ok := mc.CurrentMessage().(int); ok && n%2 == 0 {
				seen = append(seen, n)
				mc.MessageTaken()
			}
		}))
		cc.Messages().AddMessages("added")
		return nil
	}))
	loop.AddController(PrLvPostProc, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			left = append(left, mc.CurrentMessage())
			mc.MessageTaken()
		}))
		return nil
	}))

	loop.PostMessage(1)
	loop.PostMessage(2)
	loop.PostMessage(3)
	loop.PostMessage(4)
	loop.RunIteration(context.Background())
	require.Equal(t, []Message{2, 4}, seen)
	require.Equal(t, []Message{1, 3, "added"}, left)

	seen, left = nil, nil
	loop.RunIteration(context.Background())
	require.Empty(t, seen)
	require.Equal(t, []Message{"added"}, left)
}

func TestLoopStopProcessing(t *testing.T) {
	loop := NewLoop(ticks.NewManualClock(0))
	var first, rest []Message
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			first = append(first, mc.CurrentMessage())
			mc.MessageTaken()
			mc.StopProcessing()
		}))
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			rest = append(rest, mc.CurrentMessage())
		}))
		return nil
	}))
	loop.PostMessage("a")
	loop.PostMessage("b")
	loop.PostMessage("c")
	loop.RunIteration(context.Background())
	require.Equal(t, []Message{"a"}, first)
	require.Equal(t, []Message{"b", "c"}, rest)
}

type countingRunner struct {
	started chan struct{}
}

func (r *countingRunner) Run(ctx context.Context) error {
	LoopCtlFrom(ctx).PostMessage("from runner")
	close(r.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopRun(t *testing.T) {
	loop := NewLoop(ticks.NewSystemClock())
	loop.Interval = time.Millisecond
	runner := &countingRunner{started: make(chan struct{})}
	got := make(chan Message, 1)
	loop.AddRunnable(runner)
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			select {
			case got <- mc.CurrentMessage():
			default:
			}
			mc.MessageTaken()
		}))
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	<-runner.started
	loop.TriggerNext()
	select {
	case msg := <-got:
		require.Equal(t, "from runner", msg)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())

	a := errors.New("a")
	errs.Add(&RunError{Name: "serial", Err: a}, nil)
	require.Equal(t, "serial: a", errs.Aggregate().Error())

	errs.Add(errors.New("b"))
	err := errs.Aggregate()
	require.Equal(t, "2 errors: serial: a; b", err.Error())
	require.ErrorIs(t, err, a)
	require.Equal(t, []string{"serial"}, errs.Failed())
}

func TestRunnerNamesFailures(t *testing.T) {
	broken := errors.New("broken pipe")
	runner := NewRunner()
	runner.Go(
		NamedRun("ok", RunnableFunc(func(context.Context) error { return nil })),
		NamedRun("canceled", RunnableFunc(func(context.Context) error { return context.Canceled })),
		NamedRun("serial", RunnableFunc(func(context.Context) error { return broken })),
		RunnableFunc(func(context.Context) error { return errors.New("failed") }),
	)
	err := runner.Wait()
	require.Error(t, err)
	require.ErrorIs(t, err, broken)

	var agg *AggregatedError
	require.True(t, errors.As(err, &agg))
	require.ElementsMatch(t, []string{"serial", "#3"}, agg.Failed())
	require.Contains(t, err.Error(), "serial: broken pipe")
	require.Contains(t, err.Error(), "#3: failed")
}

func TestRunnerNoFailure(t *testing.T) {
	runner := NewRunner()
	runner.Go(RunnableFunc(func(context.Context) error { return nil }))
	require.NoError(t, runner.Wait())
}

func TestLoopRunReportsRunnerFailure(t *testing.T) {
	loop := NewLoop(ticks.NewSystemClock())
	broken := errors.New("port closed")
	loop.AddRunnable(NamedRun("serial", RunnableFunc(func(context.Context) error { return broken })))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	cancel()
	err := <-errCh
	require.ErrorIs(t, err, broken)
	require.Equal(t, "serial: port closed", err.Error())
}
