package link

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow indicates the transport hardware FIFO overran.
	ErrOverflow = errors.New("receive overflow")
	// ErrBufferFull indicates the transport driver buffer is full.
	ErrBufferFull = errors.New("receive buffer full")
	// ErrPayloadTooLarge indicates a payload can't be carried by one frame.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// TransportError wraps an error reported by the transport.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRecoverable tells if the receiver should flush and resync on err
// instead of giving up.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrBufferFull)
}
