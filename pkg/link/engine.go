package link

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/voicelink/pkg/fx"
	"github.com/robotalks/voicelink/pkg/ringbuf"
)

// Options configures an Engine. Zero values select defaults derived
// from Profile.
type Options struct {
	Profile    Profile
	MaxPayload int

	PlaybackSize int
	CaptureSize  int

	ReadyInterval time.Duration
	// CaptureGate defaults to one playback chunk. Negative disables it.
	CaptureGate   int
	WakePhrases   []string
	// InitialVolume is the volume percentage sent when the engine
	// starts, DefaultInitialVolume if zero. Negative skips it.
	InitialVolume int
	// WritePoll is the sleep between space checks of a blocked Write.
	WritePoll     time.Duration
}

// DefaultInitialVolume is the volume percentage applied on start.
const DefaultInitialVolume = 80

func (o Options) withDefaults() Options {
	if o.Profile.SendChunk <= 0 {
		o.Profile = ProfilePCM16K
	}
	if o.MaxPayload <= 0 {
		o.MaxPayload = DefaultMaxPayload
	} else if o.MaxPayload > MaxPayloadSize {
		o.MaxPayload = MaxPayloadSize
	}
	if o.PlaybackSize <= 0 {
		o.PlaybackSize = o.Profile.PlaybackSize()
	}
	if o.CaptureSize <= 0 {
		o.CaptureSize = o.Profile.CaptureSize()
	}
	if o.ReadyInterval <= 0 {
		o.ReadyInterval = 5 * time.Millisecond
	}
	if o.CaptureGate == 0 {
		o.CaptureGate = o.Profile.SendChunk
	}
	if o.WakePhrases == nil {
		o.WakePhrases = DefaultWakePhrases
	}
	if o.InitialVolume == 0 {
		o.InitialVolume = DefaultInitialVolume
	}
	if o.WritePoll <= 0 {
		o.WritePoll = 2 * time.Millisecond
	}
	return o
}

// Engine wires the link components around one Transport and exposes
// the audio facing API.
type Engine struct {
	Transport  Transport
	Capture    *ringbuf.Ring
	Playback   *ringbuf.Ring
	Parser     *Parser
	Receiver   *Receiver
	Dispatcher *Dispatcher
	Scheduler  *Scheduler
	Handlers   *Handlers

	opts          Options
	sendLock      sync.Mutex
	volume        atomic.Int32
	inputEnabled  atomic.Bool
	outputEnabled atomic.Bool
}

// Stats is a snapshot of all engine counters.
type Stats struct {
	Parser       ParserStats   `json:"parser"`
	Receiver     RecvStats     `json:"receiver"`
	Dispatcher   DispatchStats `json:"dispatcher"`
	Scheduler    SchedStats    `json:"scheduler"`
	CaptureUsed  int           `json:"capture_used"`
	CaptureCap   int           `json:"capture_cap"`
	PlaybackUsed int           `json:"playback_used"`
	PlaybackCap  int           `json:"playback_cap"`
	Volume       int           `json:"volume"`
	Input        bool          `json:"input"`
	Output       bool          `json:"output"`
}

// NewEngine creates an Engine over t.
func NewEngine(t Transport, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		Transport: t,
		Capture:   ringbuf.New(opts.CaptureSize),
		Playback:  ringbuf.New(opts.PlaybackSize),
		Parser:    NewParser(opts.MaxPayload),
		Handlers:  &Handlers{},
		opts:      opts,
	}
	e.Dispatcher = &Dispatcher{
		Capture:     e.Capture,
		Playback:    e.Playback,
		Handlers:    e.Handlers,
		CaptureGate: opts.CaptureGate,
		WakePhrases: opts.WakePhrases,
	}
	e.Receiver = NewReceiver(t, e.Parser, e.Dispatcher)
	e.Scheduler = &Scheduler{
		Playback:             e.Playback,
		Capture:              e.Capture,
		Sender:               e,
		Handlers:             e.Handlers,
		SendInterval:         opts.Profile.SendInterval,
		ReadyInterval:        opts.ReadyInterval,
		SendChunk:            opts.Profile.SendChunk,
		OutputReadyThreshold: opts.Profile.OutputReady(),
		InputReadyThreshold:  opts.Profile.InputReady,
	}
	e.inputEnabled.Store(true)
	e.outputEnabled.Store(true)
	return e
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Run starts the receive and scheduler loops and blocks until ctx is
// done or the transport fails.
func (e *Engine) Run(ctx context.Context) error {
	glog.Infof("link engine start: profile %s, playback %d, capture %d",
		e.opts.Profile.Name, e.Playback.Cap(), e.Capture.Cap())
	if e.opts.InitialVolume >= 0 {
		if err := e.SetVolume(e.opts.InitialVolume); err != nil {
			return err
		}
	}
	return fx.NewRunnerWith(ctx).
		Go(fx.NamedRun("receiver", e.Receiver), fx.NamedRun("scheduler", e.Scheduler)).
		Wait()
}

// Send implements Sender. Payloads larger than MaxPayload are carried
// by consecutive frames. Frames of concurrent senders never interleave.
func (e *Engine) Send(cmd Command, payload []byte) error {
	if glog.V(2) {
		glog.Infof("SND %s[%d]", cmd, len(payload))
	}
	var err error
	e.sendLock.Lock()
	if len(payload) <= e.opts.MaxPayload {
		_, err = (&Frame{Command: cmd, Payload: payload}).WriteTo(e.Transport)
	} else {
		_, err = e.Transport.Write(EncodeSegments(cmd, payload, e.opts.MaxPayload))
	}
	e.sendLock.Unlock()
	if err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// SendControl sends control bytes to the device.
func (e *Engine) SendControl(p []byte) error {
	return e.Send(CmdSendControl, p)
}

// SetVolume sets the output volume in percent (clamped to 0-100).
// The device receives it scaled to its native 0-31 range.
func (e *Engine) SetVolume(percent int) error {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	e.volume.Store(int32(percent))
	return e.Send(CmdSendVolume, []byte{byte(percent * 31 / 100)})
}

// Volume returns the last volume set in percent.
func (e *Engine) Volume() int {
	return int(e.volume.Load())
}

// EnableInput enables or disables Read.
func (e *Engine) EnableInput(enable bool) {
	if e.inputEnabled.Swap(enable) != enable {
		glog.Infof("set input enable to %v", enable)
	}
}

// EnableOutput enables or disables Write. Disabling output drops
// pending playback audio.
func (e *Engine) EnableOutput(enable bool) {
	if e.outputEnabled.Swap(enable) != enable {
		glog.Infof("set output enable to %v", enable)
		if !enable {
			e.Playback.Reset()
		}
	}
}

// InputEnabled tells if Read returns captured audio.
func (e *Engine) InputEnabled() bool {
	return e.inputEnabled.Load()
}

// OutputEnabled tells if Write queues playback audio.
func (e *Engine) OutputEnabled() bool {
	return e.outputEnabled.Load()
}

// Write queues 16-bit playback samples, blocking while the playback
// buffer lacks room. It returns len(samples) unless ctx is done first.
func (e *Engine) Write(ctx context.Context, samples []int16) (int, error) {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	n, err := e.WriteBytes(ctx, b)
	return n / 2, err
}

// WriteBytes queues raw playback bytes, blocking while the playback
// buffer lacks room. Requests larger than the buffer are queued piece
// by piece.
func (e *Engine) WriteBytes(ctx context.Context, p []byte) (int, error) {
	if !e.outputEnabled.Load() {
		return len(p), nil
	}
	var written int
	for len(p) > 0 {
		piece := p
		if c := e.Playback.Cap(); len(piece) > c {
			piece = piece[:c]
		}
		if err := e.waitPlayback(ctx, len(piece)); err != nil {
			return written, err
		}
		e.Playback.Push(piece, true)
		written += len(piece)
		p = p[len(piece):]
	}
	return written, nil
}

func (e *Engine) waitPlayback(ctx context.Context, n int) error {
	if e.Playback.Available() >= n {
		return nil
	}
	ticker := time.NewTicker(e.opts.WritePoll)
	defer ticker.Stop()
	for e.Playback.Available() < n {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Read moves captured samples into dst without blocking and returns
// the number of samples copied.
func (e *Engine) Read(dst []int16) int {
	if !e.inputEnabled.Load() {
		return 0
	}
	n := e.Capture.Used() &^ 1
	if limit := len(dst) * 2; n > limit {
		n = limit
	}
	if n == 0 {
		return 0
	}
	b := make([]byte, n)
	n = e.Capture.Pop(b)
	for i := 0; i < n/2; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return n / 2
}

// ReadBytes moves captured bytes into p without blocking.
func (e *Engine) ReadBytes(p []byte) int {
	if !e.inputEnabled.Load() {
		return 0
	}
	return e.Capture.Pop(p)
}

// PeekCapture returns up to n captured bytes without consuming them.
func (e *Engine) PeekCapture(n int) []byte {
	if used := e.Capture.Used(); n > used {
		n = used
	}
	b := make([]byte, n)
	return b[:e.Capture.Peek(b)]
}

// DropCapture discards all captured bytes and returns the count.
func (e *Engine) DropCapture() int {
	return e.Capture.Discard(e.Capture.Used())
}

// OnInputReady registers a callback fired while captured audio is
// waiting to be read. It runs on the scheduler goroutine.
func (e *Engine) OnInputReady(fn func()) {
	e.Handlers.On(KindInputReady, func(Notice) { fn() })
}

// OnOutputReady registers a callback fired while playback has room.
// It runs on the scheduler goroutine.
func (e *Engine) OnOutputReady(fn func()) {
	e.Handlers.On(KindOutputReady, func(Notice) { fn() })
}

// OnWakePhrase registers a callback receiving detected wake phrases.
// It runs on the receive goroutine and must not block.
func (e *Engine) OnWakePhrase(fn func(string)) {
	e.Handlers.On(KindWake, func(n Notice) { fn(n.Text) })
}

// OnControl registers a callback receiving every control text.
// It runs on the receive goroutine and must not block.
func (e *Engine) OnControl(fn func(string)) {
	e.Handlers.On(KindControl, func(n Notice) { fn(n.Text) })
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Parser:       e.Parser.Stats(),
		Receiver:     e.Receiver.Stats(),
		Dispatcher:   e.Dispatcher.Stats(),
		Scheduler:    e.Scheduler.Stats(),
		CaptureUsed:  e.Capture.Used(),
		CaptureCap:   e.Capture.Cap(),
		PlaybackUsed: e.Playback.Used(),
		PlaybackCap:  e.Playback.Cap(),
		Volume:       e.Volume(),
		Input:        e.InputEnabled(),
		Output:       e.OutputEnabled(),
	}
}
