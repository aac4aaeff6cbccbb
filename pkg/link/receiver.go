package link

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/golang/glog"
)

// FrameHandler is called when a frame is received.
// It runs on the receive path and must not block.
type FrameHandler interface {
	HandleFrame(context.Context, *Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, *Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame *Frame) {
	f(ctx, frame)
}

// DefaultReadBufferSize is the size of a single transport read.
const DefaultReadBufferSize = 1024

// Receiver drains a Transport into a Parser and hands decoded frames
// to a FrameHandler.
type Receiver struct {
	Transport      Transport
	Parser         *Parser
	Handler        FrameHandler
	ReadBufferSize int

	bytes     atomic.Uint64
	overflows atomic.Uint64
}

// RecvStats are counters collected by the receiver.
type RecvStats struct {
	Bytes     uint64
	Overflows uint64
}

// NewReceiver creates a Receiver.
func NewReceiver(t Transport, p *Parser, h FrameHandler) *Receiver {
	return &Receiver{
		Transport:      t,
		Parser:         p,
		Handler:        h,
		ReadBufferSize: DefaultReadBufferSize,
	}
}

// Stats returns a snapshot of the counters.
func (r *Receiver) Stats() RecvStats {
	return RecvStats{Bytes: r.bytes.Load(), Overflows: r.overflows.Load()}
}

// Run reads until ctx is done or the transport fails.
// Receive overflows are recovered locally and never returned.
func (r *Receiver) Run(ctx context.Context) error {
	size := r.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	buf := make([]byte, size)
	if src, ok := r.Transport.(EventSource); ok {
		return r.runEvents(ctx, src.Events(), buf)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := r.Transport.Read(buf)
		if n > 0 {
			r.feed(ctx, buf[:n])
		}
		if err != nil {
			if IsRecoverable(err) {
				r.resync(err.Error())
				continue
			}
			if os.IsTimeout(err) {
				continue
			}
			return &TransportError{Op: "read", Err: err}
		}
	}
}

func (r *Receiver) runEvents(ctx context.Context, events <-chan Event, buf []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return &TransportError{Op: "events", Err: io.EOF}
			}
			switch ev {
			case EventData:
				if err := r.drain(ctx, buf); err != nil {
					return err
				}
			case EventOverflow, EventBufferFull:
				r.resync(ev.String())
				discardEvents(events)
			}
		}
	}
}

// drain reads until the transport has nothing left.
func (r *Receiver) drain(ctx context.Context, buf []byte) error {
	for {
		n, err := r.Transport.Read(buf)
		if n > 0 {
			r.feed(ctx, buf[:n])
		}
		switch {
		case err == nil && n > 0:
			continue
		case err == nil || os.IsTimeout(err):
			return nil
		case IsRecoverable(err):
			r.resync(err.Error())
			return nil
		default:
			return &TransportError{Op: "read", Err: err}
		}
	}
}

func discardEvents(events <-chan Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (r *Receiver) feed(ctx context.Context, p []byte) {
	r.bytes.Add(uint64(len(p)))
	for f := range r.Parser.Feed(p) {
		if glog.V(2) {
			glog.Infof("RCV %s", f)
		}
		if h := r.Handler; h != nil {
			h.HandleFrame(ctx, f)
		}
	}
}

// resync drops everything in flight: unread transport bytes and the
// partially assembled frame.
func (r *Receiver) resync(reason string) {
	r.overflows.Add(1)
	glog.Warningf("%s, flushing input", reason)
	if f, ok := r.Transport.(Flusher); ok {
		if err := f.Flush(); err != nil {
			glog.Warningf("flush input error: %v", err)
		}
	}
	r.Parser.Reset()
}
