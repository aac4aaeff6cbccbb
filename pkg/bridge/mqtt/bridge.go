// Package mqtt publishes link engine events to an MQTT broker and
// accepts volume and playback commands from it.
//
// Topics, relative to the queue prefix and the device ID:
//
//	<id>/wake      published, StringValue with the wake phrase
//	<id>/control   published, StringValue with every control text
//	<id>/stats     published retained, JSON engine counters
//	<id>/capture   published, BytesValue with captured audio
//	<id>/volume    subscribed, UInt32Value volume percentage
//	<id>/playback  subscribed, BytesValue with playback audio
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"

	"github.com/robotalks/voicelink/pkg/fx"
	"github.com/robotalks/voicelink/pkg/link"
)

// Topic names under the device ID.
const (
	TopicWake     = "wake"
	TopicControl  = "control"
	TopicStats    = "stats"
	TopicCapture  = "capture"
	TopicVolume   = "volume"
	TopicPlayback = "playback"
)

// Broker is the part of Queue used by Bridge.
type Broker interface {
	Sub(filter string, handler Handler) *Subscription
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Engine is the part of link.Engine used by Bridge.
type Engine interface {
	OnWakePhrase(func(string))
	OnControl(func(string))
	OnInputReady(func())
	SetVolume(percent int) error
	WriteBytes(ctx context.Context, p []byte) (int, error)
	ReadBytes(p []byte) int
	Stats() link.Stats
}

// DefaultStatsInterval is the period of stats publishing.
const DefaultStatsInterval = 5 * time.Second

const queueSize = 32

// Bridge connects an Engine with a Broker.
type Bridge struct {
	Broker         Broker
	Engine         Engine
	DeviceID       string
	// StatsInterval is DefaultStatsInterval if zero. Negative disables stats.
	StatsInterval  time.Duration
	// ForwardCapture publishes captured audio on the capture topic.
	ForwardCapture bool
	// CaptureChunk is the maximum captured bytes per message.
	CaptureChunk   int

	initOnce sync.Once
	running  atomic.Bool
	outbox   chan message
	playback chan []byte
	capture  chan struct{}
}

// ErrBridgeRunning is returned by Run when the bridge already runs.
var ErrBridgeRunning = errors.New("mqtt bridge already running")

type message struct {
	topic   string
	payload []byte
	retain  bool
}

// Topic returns the full topic of name under the device ID.
func (b *Bridge) Topic(name string) string {
	if b.DeviceID == "" {
		return name
	}
	return b.DeviceID + "/" + name
}

// init registers the engine handlers once. They forward events only
// while Run is active.
func (b *Bridge) init() {
	b.outbox = make(chan message, queueSize)
	b.playback = make(chan []byte, queueSize)
	b.capture = make(chan struct{}, 1)

	b.Engine.OnWakePhrase(func(text string) {
		b.post(TopicWake, encodeString(text), false)
	})
	b.Engine.OnControl(func(text string) {
		b.post(TopicControl, encodeString(text), false)
	})
	if b.ForwardCapture {
		b.Engine.OnInputReady(func() {
			if !b.running.Load() {
				return
			}
			select {
			case b.capture <- struct{}{}:
			default:
			}
		})
	}
}

// Run implements fx.Runnable. Engine events are published only while
// Run is active; the bridge may be run again after Run returns.
func (b *Bridge) Run(ctx context.Context) error {
	b.initOnce.Do(b.init)
	if !b.running.CompareAndSwap(false, true) {
		return ErrBridgeRunning
	}
	defer b.drain()
	defer b.running.Store(false)

	subs := []*Subscription{
		b.Broker.Sub(b.Topic(TopicVolume), b.handleVolume),
		b.Broker.Sub(b.Topic(TopicPlayback), b.handlePlayback),
	}
	defer func() {
		for _, sub := range subs {
			if err := sub.Close(); err != nil {
				glog.Warningf("mqtt unsubscribe error: %v", err)
			}
		}
	}()

	glog.Infof("mqtt bridge started for device %q", b.DeviceID)
	return fx.NewRunnerWith(ctx).
		Go(fx.NamedRun("mqtt-publish", fx.RunFunc(b.publishLoop)),
			fx.NamedRun("mqtt-playback", fx.RunFunc(b.playbackLoop))).
		Wait()
}

// drain drops messages queued for a stopped bridge.
func (b *Bridge) drain() {
	for {
		select {
		case <-b.outbox:
		case <-b.playback:
		case <-b.capture:
		default:
			return
		}
	}
}

// post queues a message without blocking; it runs on engine goroutines.
func (b *Bridge) post(name string, payload []byte, retain bool) {
	if !b.running.Load() {
		return
	}
	select {
	case b.outbox <- message{topic: b.Topic(name), payload: payload, retain: retain}:
	default:
		glog.Warningf("mqtt outbox full, drop %s", name)
	}
}

func (b *Bridge) publishLoop(ctx context.Context) error {
	interval := b.StatsInterval
	if interval == 0 {
		interval = DefaultStatsInterval
	}
	var statsCh <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		statsCh = ticker.C
	}
	chunk := b.CaptureChunk
	if chunk <= 0 {
		chunk = link.DefaultMaxPayload
	}
	buf := make([]byte, chunk)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.outbox:
			b.publish(msg)
		case <-statsCh:
			b.publishStats()
		case <-b.capture:
			for {
				n := b.Engine.ReadBytes(buf)
				if n == 0 {
					break
				}
				b.publish(message{topic: b.Topic(TopicCapture), payload: encodeBytes(buf[:n])})
			}
		}
	}
}

func (b *Bridge) publish(msg message) {
	token := b.Broker.PubWith(msg.topic, msg.payload, 0, msg.retain)
	if token.Wait() && token.Error() != nil {
		glog.Warningf("mqtt publish %s error: %v", msg.topic, token.Error())
	}
}

func (b *Bridge) publishStats() {
	data, err := json.Marshal(b.Engine.Stats())
	if err != nil {
		glog.Warningf("encode stats error: %v", err)
		return
	}
	b.publish(message{topic: b.Topic(TopicStats), payload: data, retain: true})
}

func (b *Bridge) playbackLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-b.playback:
			if _, err := b.Engine.WriteBytes(ctx, p); err != nil {
				return err
			}
		}
	}
}

func (b *Bridge) handleVolume(topic string, payload []byte) {
	var v wrappers.UInt32Value
	if err := proto.Unmarshal(payload, &v); err != nil {
		glog.Warningf("invalid volume message: %v", err)
		return
	}
	if err := b.Engine.SetVolume(int(v.Value)); err != nil {
		glog.Warningf("set volume error: %v", err)
	}
}

func (b *Bridge) handlePlayback(topic string, payload []byte) {
	if !b.running.Load() {
		return
	}
	var v wrappers.BytesValue
	if err := proto.Unmarshal(payload, &v); err != nil {
		glog.Warningf("invalid playback message: %v", err)
		return
	}
	select {
	case b.playback <- v.Value:
	default:
		glog.Warningf("playback queue full, drop %d bytes", len(v.Value))
	}
}

func encodeString(s string) []byte {
	data, _ := proto.Marshal(&wrappers.StringValue{Value: s})
	return data
}

func encodeBytes(p []byte) []byte {
	data, _ := proto.Marshal(&wrappers.BytesValue{Value: p})
	return data
}
