// Package websocket carries the link byte stream over binary websocket
// messages, for devices exposed by a remote serial bridge.
package websocket

import (
	"net/http"

	"golang.org/x/net/websocket"
)

// Conn implements link.Transport and link.Flusher over a websocket.
// Message boundaries are not significant. Read and Flush must be called
// from the same goroutine.
type Conn struct {
	ws      *websocket.Conn
	pending []byte
}

// New wraps websocket.Conn.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Dial connects to a websocket server.
func Dial(url, origin string) (*Conn, error) {
	if origin == "" {
		origin = "http://localhost/"
	}
	ws, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(ws), nil
}

// Handler serves websocket clients with fn, for exposing a local
// transport to remote engines.
func Handler(fn func(*Conn)) http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		fn(New(ws))
	})
}

// Read implements io.Reader.
func (c *Conn) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		if err := websocket.Message.Receive(c.ws, &c.pending); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write implements io.Writer. Each call is sent as one binary message.
func (c *Conn) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(c.ws, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush drops the remaining bytes of the current message.
func (c *Conn) Flush() error {
	c.pending = nil
	return nil
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	return c.ws.Close()
}
