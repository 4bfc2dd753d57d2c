package relay

import (
	"net"
	"time"

	"chatrelay/internal/registry"
)

// Conn is one client connection as seen by a session: a read yields one
// message chunk, Peer identifies the remote end for diagnostics.
type Conn interface {
	registry.Conn
	Read(p []byte) (int, error)
	Close() error
	Peer() string
}

type tcpConn struct {
	rawConn   net.Conn
	peer      string
	writeWait time.Duration
}

// NewTCPConn adapts an accepted stream connection. Every write gets a fresh
// deadline of writeWait so a stalled peer cannot pin the registry lock; zero
// disables the deadline.
func NewTCPConn(c net.Conn, writeWait time.Duration) Conn {
	return &tcpConn{rawConn: c, peer: c.RemoteAddr().String(), writeWait: writeWait}
}

func (c *tcpConn) Read(p []byte) (int, error) { return c.rawConn.Read(p) }

// Write is only called from Registry.Broadcast, which already serializes it.
func (c *tcpConn) Write(p []byte) (int, error) {
	if c.writeWait > 0 {
		_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.writeWait))
	}
	return c.rawConn.Write(p)
}

func (c *tcpConn) Close() error { return c.rawConn.Close() }

func (c *tcpConn) Peer() string { return c.peer }
