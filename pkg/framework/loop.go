package framework

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

// DefaultInterval is the default period between iterations.
const DefaultInterval = 10 * time.Millisecond

// Loop is the cooperative scheduler. Every iteration runs the controllers
// of each priority level in registration order on a single goroutine, so
// no two ticks of a component ever overlap.
type Loop struct {
	Interval time.Duration
	Clock    ticks.Clock

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	iteration uint64
	messages  messageList
	lock      sync.Mutex

	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	*Loop
	ctx           context.Context
	now           ticks.Millis
	seq           uint64
	priorityLevel int
	messages      messageList
}

type messageList struct {
	head *messageItem
	tail *messageItem
}

type messageItem struct {
	msg  Message
	next *messageItem
}

func (l *messageList) append(item *messageItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
}

func (l *messageList) splice(src *messageList) {
	l.head, l.tail = src.head, src.tail
	src.head, src.tail = nil, nil
}

var loopCtxKey = &Loop{}

// LoopCtlFrom gets LoopControl from a context passed to runners.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// NewLoop creates a Loop driven by clock.
func NewLoop(clock ticks.Clock) *Loop {
	return &Loop{
		Interval: DefaultInterval,
		Clock:    clock,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at a priority level.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds background runners.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. After ctx is done it waits for the added
// Runnables and returns their failures, if any.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, LoopControl(l)))
	runner.Go(l.runners...)

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := runner.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			l.RunIteration(ctx)
		case <-l.wakeUpCh:
			l.RunIteration(ctx)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exit(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.messages.append(&messageItem{msg: msg})
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// RunIteration runs all controllers once. Run calls it periodically; tests
// and the bench shell call it directly to step the loop.
func (l *Loop) RunIteration(ctx context.Context) {
	l.iteration++
	iter := &loopIteration{Loop: l, now: l.Clock.Millis(), seq: l.iteration}
	l.lock.Lock()
	iter.messages.splice(&l.messages)
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, loopCtxKey, ControlContext(iter))
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		for _, ctl := range l.controllers[i] {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error at level %d: %v", i, err)
			}
		}
	}
	if iter.messages.head != nil {
		glog.V(3).Infof("iteration %d: unprocessed messages dropped", iter.seq)
	}
}

// Iterations returns the number of iterations run so far.
func (l *Loop) Iterations() uint64 {
	return l.iteration
}

// CtlCtxFrom gets the ControlContext from the context of an iteration.
func CtlCtxFrom(ctx context.Context) ControlContext {
	return ctx.Value(loopCtxKey).(ControlContext)
}

func (t *loopIteration) Millis() ticks.Millis     { return t.now }
func (t *loopIteration) Context() context.Context { return t.ctx }
func (t *loopIteration) Iteration() uint64        { return t.seq }
func (t *loopIteration) PriorityLevel() int       { return t.priorityLevel }
func (t *loopIteration) Messages() MessageStore   { return t }

type messageContext struct {
	item  *messageItem
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message { return c.item.msg }
func (c *messageContext) MessageTaken()           { c.taken = true }
func (c *messageContext) StopProcessing()         { c.stop = true }

func (t *loopIteration) ProcessMessages(proc MessageProcessor) {
	var msgs, remains messageList
	msgs.splice(&t.messages)
	for item := msgs.head; item != nil; {
		next := item.next
		item.next = nil
		mctx := &messageContext{item: item}
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains.append(item)
		}
		item = next
		if mctx.stop {
			for ; item != nil; item = next {
				next = item.next
				item.next = nil
				remains.append(item)
			}
		}
	}
	// messages added while processing go after the remaining ones.
	for item := t.messages.head; item != nil; {
		next := item.next
		item.next = nil
		remains.append(item)
		item = next
	}
	t.messages = remains
}

func (t *loopIteration) AddMessages(msgs ...Message) {
	for _, msg := range msgs {
		t.messages.append(&messageItem{msg: msg})
	}
}
