package link

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/voicelink/pkg/ringbuf"
)

// Kind identifies a notification delivered to registered handlers.
type Kind int

// Notification kinds.
const (
	// KindWake is fired when a control text matches a wake phrase.
	KindWake Kind = iota
	// KindControl is fired for every control text received.
	KindControl
	// KindInputReady is fired when captured audio is ready to Read.
	KindInputReady
	// KindOutputReady is fired when playback has room to Write.
	KindOutputReady
)

// Notice is passed to handlers.
type Notice struct {
	Kind Kind
	Text string
}

// Handler receives notices. Handlers run synchronously on the receive
// or scheduler goroutine and must return quickly: a slow wake handler
// delays draining the transport and risks a receive overflow.
type Handler func(Notice)

// Handlers is a handler table keyed by Kind.
type Handlers struct {
	lock  sync.RWMutex
	table map[Kind][]Handler
}

// On registers a handler for kind.
func (h *Handlers) On(kind Kind, fn Handler) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.table == nil {
		h.table = make(map[Kind][]Handler)
	}
	h.table[kind] = append(h.table[kind], fn)
}

// Has tells if any handler is registered for kind.
func (h *Handlers) Has(kind Kind) bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.table[kind]) > 0
}

// Fire invokes all handlers of the notice kind in registration order.
func (h *Handlers) Fire(n Notice) {
	h.lock.RLock()
	fns := h.table[n.Kind]
	h.lock.RUnlock()
	for _, fn := range fns {
		fn(n)
	}
}

// DefaultWakePhrases are the control texts reported as wake events.
var DefaultWakePhrases = []string{"你好小智", "开始配网"}

// Dispatcher routes received frames by command.
type Dispatcher struct {
	Capture     *ringbuf.Ring
	Playback    *ringbuf.Ring
	Handlers    *Handlers
	// CaptureGate admits captured audio only while playback holds fewer
	// bytes than this. Zero or negative disables gating.
	CaptureGate int
	WakePhrases []string

	counters dispatchCounters
}

// DispatchStats are counters collected by the dispatcher.
type DispatchStats struct {
	CaptureBytes   uint64
	CaptureDropped uint64
	CaptureGated   uint64
	ControlFrames  uint64
	WakeEvents     uint64
	UnknownFrames  uint64
}

type dispatchCounters struct {
	captured, dropped, gated, control, wakes, unknown atomic.Uint64
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		CaptureBytes:   d.counters.captured.Load(),
		CaptureDropped: d.counters.dropped.Load(),
		CaptureGated:   d.counters.gated.Load(),
		ControlFrames:  d.counters.control.Load(),
		WakeEvents:     d.counters.wakes.Load(),
		UnknownFrames:  d.counters.unknown.Load(),
	}
}

// HandleFrame implements FrameHandler.
func (d *Dispatcher) HandleFrame(ctx context.Context, f *Frame) {
	switch f.Command {
	case CmdRecvPCM:
		d.capture(f.Payload)
	case CmdRecvControl:
		d.control(f.Payload)
	default:
		d.counters.unknown.Add(1)
		glog.Warningf("unrecognized command %s, %d bytes", f.Command, len(f.Payload))
	}
}

func (d *Dispatcher) capture(data []byte) {
	if d.CaptureGate > 0 && d.Playback != nil && d.Playback.Used() >= d.CaptureGate {
		d.counters.gated.Add(uint64(len(data)))
		return
	}
	n := d.Capture.Push(data, false)
	d.counters.captured.Add(uint64(n))
	if n < len(data) {
		d.counters.dropped.Add(uint64(len(data) - n))
	}
}

func (d *Dispatcher) control(data []byte) {
	d.counters.control.Add(1)
	text := string(data)
	glog.V(1).Infof("control %q", text)
	phrases := d.WakePhrases
	if phrases == nil {
		phrases = DefaultWakePhrases
	}
	var wake bool
	for _, phrase := range phrases {
		if text == phrase {
			wake = true
			break
		}
	}
	if wake {
		d.counters.wakes.Add(1)
		glog.Infof("wake phrase %q", text)
	}
	if d.Handlers == nil {
		return
	}
	d.Handlers.Fire(Notice{Kind: KindControl, Text: text})
	if wake {
		d.Handlers.Fire(Notice{Kind: KindWake, Text: text})
	}
}
