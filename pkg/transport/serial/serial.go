// Package serial provides the UART link transport.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Defaults of the device UART.
const (
	DefaultBaudRate    = 2000000
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config describes how to open a port.
type Config struct {
	Name        string
	BaudRate    int
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Mode returns the 8N1 line settings.
func (c Config) Mode() *serial.Mode {
	c = c.withDefaults()
	return &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Port is an open serial port implementing link.Transport and
// link.Flusher. Read returns 0 bytes when the read timeout expires.
type Port struct {
	port serial.Port
	name string
}

// Open opens the port described by cfg.
func Open(cfg Config) (*Port, error) {
	if cfg.Name == "" {
		return nil, errors.New("serial port name required")
	}
	cfg = cfg.withDefaults()
	port, err := serial.Open(cfg.Name, cfg.Mode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout %s: %w", cfg.Name, err)
	}
	return &Port{port: port, name: cfg.Name}, nil
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	return n, mapError(err)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	return n, mapError(err)
}

// Flush drops bytes received but not yet read.
func (p *Port) Flush() error {
	return p.port.ResetInputBuffer()
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.port.Close()
}

// Ports lists serial ports found on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func mapError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return io.EOF
	}
	return err
}
