package timesync

import (
	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
)

// Tag starts every time frame on a serial stream, "T:<epoch>". Its length
// is DefaultAuthOffset.
const Tag = "T:"

// AuthoritativeTime is a loop message carrying peer time, either as a text
// payload or as decoded epoch seconds when Payload is nil. Network runners
// post it instead of calling the Helper from their own goroutine.
type AuthoritativeTime struct {
	Payload []byte
	Epoch   int64
}

// Control implements framework.Controller.
func (h *Helper) Control(cc framework.ControlContext) error {
	cc.Messages().ProcessMessages(framework.ProcessMessageFunc(func(mc framework.MessageProcessingContext) {
		if msg, ok := mc.CurrentMessage().(AuthoritativeTime); ok {
			if msg.Payload != nil {
				h.ApplyAuthoritativeTime(msg.Payload)
			} else {
				h.ApplyAuthoritativeEpoch(msg.Epoch)
			}
			mc.MessageTaken()
		}
	}))
	h.Tick()
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (h *Helper) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvControl, h)
	if runner, ok := h.Transport.(framework.Runnable); ok {
		l.AddRunnable(framework.NamedRun("ntp", runner))
	}
}

// HandleFrame implements comm.FrameHandler for time frames received on a
// serial stream, e.g. "T:1700000000".
func (h *Helper) HandleFrame(_ framework.ControlContext, f comm.Frame) {
	h.ApplyAuthoritativeTime(f.Data)
}
