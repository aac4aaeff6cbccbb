package link

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// testTransport is an in-memory Transport. Injected chunks are returned
// by Read one chunk at a time, injected errors are returned in order
// with chunks, and Read times out after a short idle period.
type testTransport struct {
	t       *testing.T
	readCh  chan testRead
	pending []byte
	flushes atomic.Int32

	writeLock sync.Mutex
	written   bytes.Buffer
}

type testRead struct {
	data []byte
	err  error
}

func newTestTransport(t *testing.T) *testTransport {
	return &testTransport{t: t, readCh: make(chan testRead, 64)}
}

func (s *testTransport) inject(p ...byte) {
	s.readCh <- testRead{data: append([]byte(nil), p...)}
}

func (s *testTransport) injectErr(err error) {
	s.readCh <- testRead{err: err}
}

func (s *testTransport) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case r, ok := <-s.readCh:
			if !ok {
				return 0, io.EOF
			}
			if r.err != nil {
				return 0, r.err
			}
			s.pending = r.data
		case <-time.After(5 * time.Millisecond):
			return 0, timeoutError{}
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *testTransport) Write(p []byte) (int, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	return s.written.Write(p)
}

func (s *testTransport) Flush() error {
	s.flushes.Add(1)
	s.pending = nil
	return nil
}

// frames decodes everything written so far.
func (s *testTransport) frames() []*Frame {
	s.writeLock.Lock()
	data := append([]byte(nil), s.written.Bytes()...)
	s.writeLock.Unlock()
	var frames []*Frame
	for f := range NewParser(MaxPayloadSize).Feed(data) {
		frames = append(frames, f)
	}
	return frames
}

func (s *testTransport) framesOf(cmd Command) []*Frame {
	var frames []*Frame
	for _, f := range s.frames() {
		if f.Command == cmd {
			frames = append(frames, f)
		}
	}
	return frames
}

// eventTransport delivers data-available events and never blocks in Read.
type eventTransport struct {
	lock    sync.Mutex
	pending []byte
	events  chan Event
	flushes atomic.Int32
}

func newEventTransport() *eventTransport {
	return &eventTransport{events: make(chan Event, 16)}
}

func (s *eventTransport) inject(p ...byte) {
	s.lock.Lock()
	s.pending = append(s.pending, p...)
	s.lock.Unlock()
	s.events <- EventData
}

func (s *eventTransport) Events() <-chan Event {
	return s.events
}

func (s *eventTransport) Read(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *eventTransport) Write(p []byte) (int, error) {
	return len(p), nil
}

func (s *eventTransport) Flush() error {
	s.flushes.Add(1)
	s.lock.Lock()
	s.pending = nil
	s.lock.Unlock()
	return nil
}

func mustEncode(t *testing.T, cmd Command, payload ...byte) []byte {
	b, err := Encode(cmd, payload)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
