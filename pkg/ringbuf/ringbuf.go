// Package ringbuf provides a fixed-capacity circular byte store.
package ringbuf

import "sync"

// Ring is a fixed-capacity circular byte buffer.
//
// Cursors advance monotonically and are mapped into the backing slice
// modulo capacity, so Used is always tail-head. All methods are
// serialized internally, which makes a Ring safe to share between one
// producer goroutine and one consumer goroutine without extra locking.
type Ring struct {
	lock       sync.Mutex
	buf        []byte
	head, tail int64
}

// New creates a Ring holding at most capacity bytes.
func New(capacity int) *Ring {
	if capacity <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	return &Ring{buf: make([]byte, capacity)}
}

// Cap returns the capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Used returns the number of buffered bytes.
func (r *Ring) Used() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return int(r.tail - r.head)
}

// Available returns the free space in bytes.
func (r *Ring) Available() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.buf) - int(r.tail-r.head)
}

// Push copies p into the buffer.
//
// Without overwrite only what fits is written and the short count is
// returned. With overwrite the oldest bytes are evicted to make room and
// the whole of p is accepted; if p is larger than the capacity only its
// last Cap() bytes are retained.
func (r *Ring) Push(p []byte, overwrite bool) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	size := len(r.buf)
	avail := size - int(r.tail-r.head)
	if len(p) <= avail {
		r.copyIn(p)
		return len(p)
	}
	if !overwrite {
		r.copyIn(p[:avail])
		return avail
	}
	n := len(p)
	if n > size {
		// only the newest size bytes can survive.
		r.tail += int64(n - size)
		p = p[n-size:]
	}
	r.head += int64(len(p) - (size - int(r.tail-r.head)))
	r.copyIn(p)
	return n
}

func (r *Ring) copyIn(p []byte) {
	size := len(r.buf)
	for len(p) > 0 {
		off := int(r.tail % int64(size))
		c := copy(r.buf[off:], p)
		r.tail += int64(c)
		p = p[c:]
	}
}

func (r *Ring) copyOut(p []byte) int {
	size := len(r.buf)
	n := int(r.tail - r.head)
	if n > len(p) {
		n = len(p)
	}
	off := int(r.head % int64(size))
	c := copy(p[:n], r.buf[off:])
	if c < n {
		copy(p[c:n], r.buf[:n-c])
	}
	return n
}

// Pop moves up to len(p) bytes out of the buffer and returns the count.
// An empty buffer yields 0.
func (r *Ring) Pop(p []byte) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	n := r.copyOut(p)
	r.head += int64(n)
	return n
}

// Peek copies up to len(p) bytes without consuming them.
func (r *Ring) Peek(p []byte) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.copyOut(p)
}

// Discard drops up to n bytes from the read side and returns the count.
func (r *Ring) Discard(n int) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	if used := int(r.tail - r.head); n > used {
		n = used
	}
	if n > 0 {
		r.head += int64(n)
	}
	return n
}

// Reset empties the buffer.
func (r *Ring) Reset() {
	r.lock.Lock()
	r.head = r.tail
	r.lock.Unlock()
}
