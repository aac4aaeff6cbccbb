package ringbuf

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func seqBytes(from, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(from + i)
	}
	return b
}

func TestRingPushPop(t *testing.T) {
	r := New(8)
	require.Equal(t, 8, r.Cap())
	require.Equal(t, 0, r.Used())
	require.Equal(t, 8, r.Available())

	require.Equal(t, 5, r.Push(seqBytes(0, 5), false))
	require.Equal(t, 5, r.Used())
	require.Equal(t, 3, r.Available())

	out := make([]byte, 3)
	require.Equal(t, 3, r.Pop(out))
	require.Equal(t, []byte{0, 1, 2}, out)

	// wraps around the end of the backing slice.
	require.Equal(t, 6, r.Push(seqBytes(5, 6), false))
	require.Equal(t, 8, r.Used())
	out = make([]byte, 16)
	require.Equal(t, 8, r.Pop(out))
	require.Equal(t, seqBytes(3, 8), out[:8])
	require.Equal(t, 0, r.Pop(out))
}

func TestRingShortWrite(t *testing.T) {
	r := New(4)
	require.Equal(t, 3, r.Push([]byte{1, 2, 3}, false))
	require.Equal(t, 1, r.Push([]byte{4, 5, 6}, false))
	require.Equal(t, 0, r.Push([]byte{7}, false))
	out := make([]byte, 4)
	require.Equal(t, 4, r.Pop(out))
	require.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestRingOverwrite(t *testing.T) {
	testCases := []struct {
		name   string
		pushes [][]byte
		expect []byte
	}{
		{"exact fill", [][]byte{seqBytes(0, 4), seqBytes(4, 4)}, seqBytes(0, 8)},
		{"evict oldest", [][]byte{seqBytes(0, 6), seqBytes(6, 5)}, seqBytes(3, 8)},
		{"larger than capacity", [][]byte{seqBytes(0, 2), seqBytes(2, 20)}, seqBytes(14, 8)},
		{"repeated", [][]byte{seqBytes(0, 7), seqBytes(7, 7), seqBytes(14, 7)}, seqBytes(13, 8)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(8)
			for _, p := range tc.pushes {
				require.Equal(t, len(p), r.Push(p, true))
				require.LessOrEqual(t, r.Used(), r.Cap())
			}
			require.Equal(t, r.Cap(), r.Used())
			require.Equal(t, 0, r.Available())
			out := make([]byte, 8)
			require.Equal(t, 8, r.Pop(out))
			require.Equal(t, tc.expect, out)
		})
	}
}

func TestRingConservation(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	r := New(37)
	var pushed, popped int
	var next, expect byte
	for i := 0; i < 2000; i++ {
		if rnd.Intn(2) == 0 {
			p := make([]byte, rnd.Intn(20))
			for j := range p {
				p[j] = next + byte(j)
			}
			n := r.Push(p, false)
			next += byte(n)
			pushed += n
		} else {
			out := make([]byte, rnd.Intn(20))
			n := r.Pop(out)
			for _, b := range out[:n] {
				require.Equal(t, expect, b)
				expect++
			}
			popped += n
		}
		require.Equal(t, pushed-popped, r.Used())
		require.Equal(t, r.Cap(), r.Used()+r.Available())
		require.LessOrEqual(t, r.Used(), r.Cap())
	}
}

func TestRingPeekDiscardReset(t *testing.T) {
	r := New(8)
	r.Push(seqBytes(0, 6), false)
	out := make([]byte, 4)
	require.Equal(t, 4, r.Peek(out))
	require.Equal(t, seqBytes(0, 4), out)
	require.Equal(t, 6, r.Used())

	require.Equal(t, 2, r.Discard(2))
	require.Equal(t, 4, r.Pop(out))
	require.Equal(t, seqBytes(2, 4), out)
	require.Equal(t, 0, r.Discard(3))

	r.Push(seqBytes(0, 5), false)
	r.Reset()
	require.Equal(t, 0, r.Used())
	require.Equal(t, 8, r.Available())
}

func TestRingConcurrentSPSC(t *testing.T) {
	const total = 1 << 16
	r := New(97)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var next byte
		for sent := 0; sent < total; {
			p := make([]byte, 13)
			for i := range p {
				p[i] = next + byte(i)
			}
			if rem := total - sent; rem < len(p) {
				p = p[:rem]
			}
			n := r.Push(p, false)
			next += byte(n)
			sent += n
		}
	}()

	var expect byte
	buf := make([]byte, 31)
	for recv := 0; recv < total; {
		n := r.Pop(buf)
		for _, b := range buf[:n] {
			if b != expect {
				t.Fatalf("byte %d: expect %d, got %d", recv, expect, b)
			}
			expect++
			recv++
		}
	}
	wg.Wait()
	require.Equal(t, 0, r.Used())
}
