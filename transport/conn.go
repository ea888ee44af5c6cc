package transport

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
)

// Conn is a connected byte stream that remembers whether reading can still
// produce data. It satisfies frame.ReadableStream.
type Conn struct {
	net.Conn
	readable atomic.Bool
}

// NewConn wraps c.
func NewConn(c net.Conn) *Conn {
	conn := &Conn{Conn: c}
	conn.readable.Store(true)
	return conn
}

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if errors.Is(err, io.EOF) {
		c.readable.Store(false)
	}
	return n, err
}

// Close closes the connection; Readable reports false afterwards.
func (c *Conn) Close() error {
	c.readable.Store(false)
	return c.Conn.Close()
}

// Readable is false once the peer ended the stream or Close was called.
func (c *Conn) Readable() bool {
	return c.readable.Load()
}
