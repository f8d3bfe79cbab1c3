package framework

import (
	"context"

	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
// Runners sit at the edges (serial readers, network clients) and must
// hand data to the loop instead of touching component state.
type Runnable interface {
	Run(context.Context) error
}

// Message is a unit of work posted to the loop, e.g. a received frame.
type Message interface{}

// Controller is ticked once per loop iteration. Control must not block.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// ControlContext provides the context of the current iteration.
type ControlContext interface {
	ticks.Clock
	// Context retrieves context.Context.
	Context() context.Context
	// Iteration is the sequence number of the current iteration.
	Iteration() uint64
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages retrieves the messages collected when this iteration started.
	Messages() MessageStore

	LoopControl
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefined priority levels, lower runs first.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvStream reads byte streams and dispatches frames.
	PrLvStream = PrLvTop
	// PrLvSense acquires sensor readings.
	PrLvSense = PrLvHigh
	// PrLvControl runs protocol and time keeping logic.
	PrLvControl = PrLvNormal
	// PrLvPublish pushes results out.
	PrLvPublish = PrLvLow
	// PrLvPostProc is for left-over message handling.
	PrLvPostProc = PrLvIdle
)

// LoopControl exposes access to the loop from runners and handlers.
type LoopControl interface {
	// PostMessage enqueues a message for the next iteration.
	// It is safe to call from any goroutine.
	PostMessage(Message)
	// TriggerNext schedules the next iteration right away.
	TriggerNext()
}

// MessageStore provides access to the messages of an iteration.
type MessageStore interface {
	// ProcessMessages visits each message in order.
	ProcessMessages(MessageProcessor)
	// AddMessages appends messages to be seen by later controllers
	// in the same iteration.
	AddMessages(msgs ...Message)
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for the current message.
type MessageProcessingContext interface {
	// CurrentMessage gets the current message being processed.
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()
}
