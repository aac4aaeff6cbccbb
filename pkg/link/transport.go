package link

import "io"

// Transport moves raw link bytes.
//
// Read may block, time out (returning 0 bytes or a timeout error) or
// report receive faults by returning an error matching ErrOverflow or
// ErrBufferFull. Write is assumed to eventually complete or be buffered.
type Transport interface {
	io.ReadWriter
}

// Flusher is implemented by transports able to discard pending
// unread input.
type Flusher interface {
	Flush() error
}

// Event is a transport notification.
type Event int

// Transport events.
const (
	// EventData means bytes are available to Read.
	EventData Event = iota
	// EventOverflow means the hardware receive FIFO overran.
	EventOverflow
	// EventBufferFull means the driver receive buffer is full.
	EventBufferFull
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventData:
		return "data"
	case EventOverflow:
		return "overflow"
	case EventBufferFull:
		return "buffer-full"
	}
	return "unknown"
}

// EventSource is implemented by transports delivering byte
// availability notifications. When present the receiver waits for
// events and drains with Read until it returns 0, so Read must not
// block on such transports.
type EventSource interface {
	Events() <-chan Event
}
