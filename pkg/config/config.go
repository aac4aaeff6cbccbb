// Package config sets up a link engine and its bridges from defaults,
// environment variables and command line flags.
package config

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/voicelink/pkg/bridge/mqtt"
	"github.com/robotalks/voicelink/pkg/env"
	"github.com/robotalks/voicelink/pkg/link"
	"github.com/robotalks/voicelink/pkg/transport/serial"
	"github.com/robotalks/voicelink/pkg/transport/websocket"
)

// Config defines how the engine is set up.
type Config struct {
	// Port is the serial device of the audio board.
	Port         string
	BaudRate     int
	ReadTimeout  time.Duration
	// WebsocketURL reaches the board through a remote serial bridge
	// instead of Port, e.g. ws://host:8080/link.
	WebsocketURL string

	Profile    string
	// Volume is the initial volume in percent, negative keeps the
	// device setting.
	Volume     int
	MaxPayload int

	// MQTTURL enables the MQTT bridge,
	// e.g. mqtt://localhost:1883/voicelink/
	MQTTURL        string
	DeviceID       string
	StatsInterval  time.Duration
	ForwardCapture bool
}

// Transport is an opened link transport.
type Transport interface {
	link.Transport
	io.Closer
}

var defaultConfig = Config{
	Port:          "/dev/ttyS1",
	BaudRate:      serial.DefaultBaudRate,
	ReadTimeout:   serial.DefaultReadTimeout,
	Profile:       link.ProfilePCM16K.Name,
	Volume:        link.DefaultInitialVolume,
	MaxPayload:    link.DefaultMaxPayload,
	StatsInterval: mqtt.DefaultStatsInterval,
}

func init() {
	if val := os.Getenv("VOICELINK_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("VOICELINK_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = baud
		}
	}
	if val := os.Getenv("VOICELINK_PROFILE"); val != "" {
		defaultConfig.Profile = val
	}
	if val := os.Getenv("VOICELINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("VOICELINK_WS_URL"); val != "" {
		defaultConfig.WebsocketURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port of the audio board.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout.")
	flag.StringVar(&defaultConfig.WebsocketURL, "ws", defaultConfig.WebsocketURL, "Websocket URL of a remote serial bridge, overrides -port.")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "Audio profile: pcm16k, opus16k, opus16k-pcm16k.")
	flag.IntVar(&defaultConfig.Volume, "volume", defaultConfig.Volume, "Initial volume in percent, negative to keep the device setting.")
	flag.IntVar(&defaultConfig.MaxPayload, "max-payload", defaultConfig.MaxPayload, "Max frame payload in bytes.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL, empty to disable the bridge.")
	flag.StringVar(&defaultConfig.DeviceID, "device-id", defaultConfig.DeviceID, "Device ID in MQTT topics, derived from machine ID if empty.")
	flag.DurationVar(&defaultConfig.StatsInterval, "stats-interval", defaultConfig.StatsInterval, "Stats publishing interval, negative to disable.")
	flag.BoolVar(&defaultConfig.ForwardCapture, "forward-capture", defaultConfig.ForwardCapture, "Publish captured audio to MQTT.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Port == "" && c.WebsocketURL == "" {
		return fmt.Errorf("serial port or websocket URL required")
	}
	if _, ok := link.ProfileByName(c.Profile); !ok {
		return fmt.Errorf("unknown profile %q, expect one of %v", c.Profile, link.ProfileNames())
	}
	if c.Volume > 100 {
		return fmt.Errorf("invalid volume %d", c.Volume)
	}
	if c.MaxPayload <= 0 || c.MaxPayload > link.MaxPayloadSize {
		return fmt.Errorf("invalid max payload %d", c.MaxPayload)
	}
	return nil
}

// Options converts the config to engine options.
func (c *Config) Options() (link.Options, error) {
	if err := c.Validate(); err != nil {
		return link.Options{}, err
	}
	profile, _ := link.ProfileByName(c.Profile)
	opts := link.Options{
		Profile:       profile,
		MaxPayload:    c.MaxPayload,
		InitialVolume: c.Volume,
	}
	if c.Volume == 0 {
		// zero means default in link.Options, NewEngine mutes instead.
		opts.InitialVolume = -1
	}
	return opts, nil
}

// NewTransport opens the configured transport.
func (c *Config) NewTransport() (Transport, error) {
	if c.WebsocketURL != "" {
		conn, err := websocket.Dial(c.WebsocketURL, "")
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", c.WebsocketURL, err)
		}
		return conn, nil
	}
	port, err := serial.Open(serial.Config{
		Name:        c.Port,
		BaudRate:    c.BaudRate,
		ReadTimeout: c.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

// NewEngine opens the transport and creates the engine over it.
func (c *Config) NewEngine() (*link.Engine, Transport, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, nil, err
	}
	t, err := c.NewTransport()
	if err != nil {
		return nil, nil, err
	}
	e := link.NewEngine(t, opts)
	if c.Volume == 0 {
		if err := e.SetVolume(0); err != nil {
			t.Close()
			return nil, nil, err
		}
	}
	return e, t, nil
}

// MustNewEngine creates the engine and fails on error.
func (c *Config) MustNewEngine() (*link.Engine, Transport) {
	e, t, err := c.NewEngine()
	if err != nil {
		log.Fatalln(err)
	}
	return e, t
}

// BridgeEnabled tells if the MQTT bridge is configured.
func (c *Config) BridgeEnabled() bool {
	return c.MQTTURL != ""
}

// NewBridge connects the MQTT broker and creates a bridge for e.
func (c *Config) NewBridge(ctx context.Context, e mqtt.Engine) (*mqtt.Bridge, *mqtt.Queue, error) {
	deviceID := c.DeviceID
	if deviceID == "" {
		id, err := env.DeviceID(12)
		if err != nil {
			return nil, nil, fmt.Errorf("device id: %w", err)
		}
		deviceID = id
	}
	q, err := mqtt.NewQueueFromURL(c.MQTTURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid MQTT URL: %w", err)
	}
	if err := q.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect MQTT: %w", err)
	}
	b := &mqtt.Bridge{
		Broker:         q,
		Engine:         e,
		DeviceID:       deviceID,
		StatsInterval:  c.StatsInterval,
		ForwardCapture: c.ForwardCapture,
		CaptureChunk:   c.MaxPayload,
	}
	return b, q, nil
}
