package comm

import (
	"bytes"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
)

// Frame is a complete message taken from a Framer.
type Frame struct {
	Stream string
	Data   []byte
}

// FrameHandler handles frames routed by a Dispatcher.
type FrameHandler interface {
	HandleFrame(framework.ControlContext, Frame)
}

// HandleFrameFunc is the func form of FrameHandler.
type HandleFrameFunc func(framework.ControlContext, Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(cc framework.ControlContext, frame Frame) {
	f(cc, frame)
}

type route struct {
	prefix  []byte
	handler FrameHandler
}

// Dispatcher routes frames by their leading tag. Routes are matched in
// registration order. Frames without a route go to Fallback, or are added
// to the messages of the current iteration when Fallback is nil.
type Dispatcher struct {
	Fallback FrameHandler

	routes []route
}

// Handle registers a handler for frames starting with prefix.
func (d *Dispatcher) Handle(prefix string, h FrameHandler) *Dispatcher {
	d.routes = append(d.routes, route{prefix: []byte(prefix), handler: h})
	return d
}

// HandleFrame implements FrameHandler.
func (d *Dispatcher) HandleFrame(cc framework.ControlContext, frame Frame) {
	for _, r := range d.routes {
		if bytes.HasPrefix(frame.Data, r.prefix) {
			r.handler.HandleFrame(cc, frame)
			return
		}
	}
	if d.Fallback != nil {
		d.Fallback.HandleFrame(cc, frame)
		return
	}
	glog.V(3).Infof("%s: unrouted frame %q", frame.Stream, frame.Data)
	cc.Messages().AddMessages(frame)
}

// DefaultFramesPerTick limits the frames a Reader handles in one iteration.
const DefaultFramesPerTick = 8

// Reader is the loop controller which drives a Framer and hands complete
// frames to a handler.
type Reader struct {
	Name          string
	Framer        *Framer
	Handler       FrameHandler
	FramesPerTick int
}

// NewReader creates a Reader.
func NewReader(name string, framer *Framer, h FrameHandler) *Reader {
	return &Reader{Name: name, Framer: framer, Handler: h, FramesPerTick: DefaultFramesPerTick}
}

// Control implements framework.Controller.
func (r *Reader) Control(cc framework.ControlContext) error {
	limit := r.FramesPerTick
	if limit <= 0 {
		limit = DefaultFramesPerTick
	}
	for i := 0; i < limit; i++ {
		if r.Framer.Fill() != StateMessageReady {
			return nil
		}
		if err := r.Framer.Err(); err != nil {
			glog.Warningf("%s: frame discarded: %v", r.Name, err)
			r.Framer.Reset()
			continue
		}
		data, _ := r.Framer.Take()
		if r.Handler != nil {
			r.Handler.HandleFrame(cc, Frame{Stream: r.Name, Data: data})
		}
	}
	return nil
}

// AddToLoop implements framework.LoopAdder. A Source which is also a
// framework.Runnable (e.g. Port) is started with the loop.
func (r *Reader) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvStream, r)
	if runner, ok := r.Framer.Source.(framework.Runnable); ok {
		l.AddRunnable(framework.NamedRun(r.Name, runner))
	}
}

var _ framework.Runnable = (*Port)(nil)
