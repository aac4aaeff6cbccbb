package websocket

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnReadWrite(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(Handler(func(c *Conn) {
		c.Write([]byte{1, 2, 3, 4, 5})
		c.Write([]byte{6})
		buf := make([]byte, 16)
		n, _ := io.ReadFull(c, buf[:4])
		received <- buf[:n]
	}))
	defer srv.Close()

	c, err := Dial("ws"+strings.TrimPrefix(srv.URL, "http"), "")
	require.NoError(t, err)
	defer c.Close()

	buf := make([]byte, 2)
	n, err := c.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, buf[:n])

	// the rest of the first message is dropped.
	require.NoError(t, c.Flush())
	n, err = c.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{6}, buf[:n])

	_, err = c.Write([]byte{7, 8})
	require.NoError(t, err)
	_, err = c.Write([]byte{9, 10})
	require.NoError(t, err)
	require.Equal(t, []byte{7, 8, 9, 10}, <-received)
}
