package link

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/voicelink/pkg/ringbuf"
)

// Sender transmits a payload as one or more frames.
type Sender interface {
	Send(cmd Command, payload []byte) error
}

// Scheduler paces playback transmission and fires readiness notices.
//
// Two deadlines are tracked on the monotonic clock: every SendInterval
// one SendChunk is moved from Playback to the Sender, and every
// ReadyInterval buffer occupancy is checked against the thresholds.
// Each sleep ends at the earlier deadline computed from the previous
// scheduled wake time, so the cadence does not drift with processing
// time.
type Scheduler struct {
	Playback *ringbuf.Ring
	Capture  *ringbuf.Ring
	Sender   Sender
	Handlers *Handlers

	SendInterval         time.Duration
	ReadyInterval        time.Duration
	SendChunk            int
	// OutputReadyThreshold fires KindOutputReady while playback has
	// more than this many free bytes.
	OutputReadyThreshold int
	// InputReadyThreshold fires KindInputReady once capture holds at
	// least this many bytes.
	InputReadyThreshold  int

	chunks     atomic.Uint64
	underruns  atomic.Uint64
	sendErrors atomic.Uint64
}

// SchedStats are counters collected by the scheduler.
type SchedStats struct {
	ChunksSent uint64
	Underruns  uint64
	SendErrors uint64
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() SchedStats {
	return SchedStats{
		ChunksSent: s.chunks.Load(),
		Underruns:  s.underruns.Load(),
		SendErrors: s.sendErrors.Load(),
	}
}

// Run implements Runnable.
func (s *Scheduler) Run(ctx context.Context) error {
	sendInterval, readyInterval := s.SendInterval, s.ReadyInterval
	if sendInterval <= 0 {
		sendInterval = 10 * time.Millisecond
	}
	if readyInterval <= 0 {
		readyInterval = 5 * time.Millisecond
	}
	chunk := make([]byte, s.SendChunk)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	lastWake := time.Now()
	lastSend, lastReady := lastWake, lastWake
	for {
		if lastWake.Sub(lastSend) >= sendInterval {
			lastSend = lastWake
			s.sendDeadline(chunk)
		}
		if lastWake.Sub(lastReady) >= readyInterval {
			lastReady = lastWake
			s.readyDeadline()
		}

		next := lastSend.Add(sendInterval)
		if t := lastReady.Add(readyInterval); t.Before(next) {
			next = t
		}
		lastWake = next
		if wait := time.Until(next); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}
}

func (s *Scheduler) sendDeadline(chunk []byte) {
	if len(chunk) == 0 || s.Playback.Used() < len(chunk) {
		if s.Playback.Used() > 0 {
			s.underruns.Add(1)
		}
		return
	}
	s.Playback.Pop(chunk)
	if err := s.Sender.Send(CmdSendPCM, chunk); err != nil {
		s.sendErrors.Add(1)
		glog.Warningf("send playback chunk error: %v", err)
		return
	}
	s.chunks.Add(1)
}

func (s *Scheduler) readyDeadline() {
	if s.Handlers == nil {
		return
	}
	if s.Handlers.Has(KindOutputReady) && s.Playback.Available() > s.OutputReadyThreshold {
		s.Handlers.Fire(Notice{Kind: KindOutputReady})
	}
	if !s.Handlers.Has(KindInputReady) {
		return
	}
	if used := s.Capture.Used(); used > 0 && used >= s.InputReadyThreshold {
		s.Handlers.Fire(Notice{Kind: KindInputReady})
	}
}
