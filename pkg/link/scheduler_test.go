package link

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/voicelink/pkg/ringbuf"
)

type recordSender struct {
	lock   sync.Mutex
	sent   [][]byte
	times  []time.Time
	failed bool
}

func (s *recordSender) Send(cmd Command, payload []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.failed {
		return errors.New("broken")
	}
	s.sent = append(s.sent, append([]byte(nil), payload...))
	s.times = append(s.times, time.Now())
	return nil
}

func (s *recordSender) count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.sent)
}

func newTestScheduler(sender Sender) *Scheduler {
	return &Scheduler{
		Playback:             ringbuf.New(64),
		Capture:              ringbuf.New(64),
		Sender:               sender,
		Handlers:             &Handlers{},
		SendInterval:         10 * time.Millisecond,
		ReadyInterval:        5 * time.Millisecond,
		SendChunk:            8,
		OutputReadyThreshold: 32,
		InputReadyThreshold:  16,
	}
}

func runScheduler(s *Scheduler) func() error {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
	}()
	return func() error {
		cancel()
		return <-errCh
	}
}

func TestSchedulerSendsChunks(t *testing.T) {
	sender := &recordSender{}
	s := newTestScheduler(sender)
	data := make([]byte, 28)
	for i := range data {
		data[i] = byte(i)
	}
	s.Playback.Push(data, false)

	start := time.Now()
	stop := runScheduler(s)
	require.Eventually(t, func() bool {
		return sender.count() == 3
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return s.Stats().Underruns > 0
	}, time.Second, time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)

	require.Equal(t, [][]byte{data[0:8], data[8:16], data[16:24]}, sender.sent)
	require.Equal(t, 4, s.Playback.Used())
	require.Equal(t, uint64(3), s.Stats().ChunksSent)
	// one chunk per interval.
	require.GreaterOrEqual(t, sender.times[2].Sub(start), 25*time.Millisecond)
	require.GreaterOrEqual(t, sender.times[2].Sub(sender.times[0]), 15*time.Millisecond)
}

func TestSchedulerCadence(t *testing.T) {
	sender := &recordSender{}
	s := newTestScheduler(sender)
	s.Playback = ringbuf.New(8 * 100)
	s.Playback.Push(make([]byte, 8*100), false)

	stop := runScheduler(s)
	time.Sleep(200 * time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)
	n := sender.count()
	require.GreaterOrEqual(t, n, 10)
	require.LessOrEqual(t, n, 21)
}

func TestSchedulerSendError(t *testing.T) {
	sender := &recordSender{failed: true}
	s := newTestScheduler(sender)
	s.Playback.Push(make([]byte, 16), false)
	stop := runScheduler(s)
	require.Eventually(t, func() bool {
		return s.Stats().SendErrors == 2
	}, time.Second, time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)
	require.Zero(t, s.Stats().ChunksSent)
}

func TestSchedulerReadiness(t *testing.T) {
	s := newTestScheduler(&recordSender{})
	inputCh := make(chan struct{}, 1)
	outputCh := make(chan struct{}, 1)
	notify := func(ch chan struct{}) Handler {
		return func(Notice) {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
	s.Handlers.On(KindInputReady, notify(inputCh))
	s.Handlers.On(KindOutputReady, notify(outputCh))

	// playback has 40 free bytes, above the threshold.
	s.Playback.Push(make([]byte, 24), false)
	s.Capture.Push(make([]byte, 15), false)
	s.SendChunk = 0

	stop := runScheduler(s)
	defer stop()

	select {
	case <-outputCh:
	case <-time.After(time.Second):
		t.Fatal("output ready not fired")
	}
	select {
	case <-inputCh:
		t.Fatal("input ready fired below threshold")
	case <-time.After(30 * time.Millisecond):
	}

	s.Capture.Push([]byte{0}, false)
	select {
	case <-inputCh:
	case <-time.After(time.Second):
		t.Fatal("input ready not fired")
	}
}

func TestSchedulerReadyThresholds(t *testing.T) {
	testCases := []struct {
		name     string
		playback int
		capture  int
		output   bool
		input    bool
	}{
		{"idle", 0, 0, true, false},
		{"output at threshold", 32, 0, false, false},
		{"output above threshold", 31, 0, true, false},
		{"input below threshold", 64, 15, false, false},
		{"input at threshold", 64, 16, false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestScheduler(&recordSender{})
			var input, output bool
			s.Handlers.On(KindInputReady, func(Notice) { input = true })
			s.Handlers.On(KindOutputReady, func(Notice) { output = true })
			s.Playback.Push(make([]byte, tc.playback), false)
			s.Capture.Push(make([]byte, tc.capture), false)
			s.readyDeadline()
			require.Equal(t, tc.output, output)
			require.Equal(t, tc.input, input)
		})
	}
}

func TestSchedulerReadyUnobserved(t *testing.T) {
	s := newTestScheduler(&recordSender{})
	s.Capture = nil
	var output int
	s.Handlers.On(KindOutputReady, func(Notice) { output++ })
	require.NotPanics(t, s.readyDeadline)
	require.Equal(t, 1, output)
	require.False(t, s.Handlers.Has(KindInputReady))
}
