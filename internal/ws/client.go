package ws

import (
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

// clientConn adapts a websocket to relay.Conn. One data frame is one message:
// bytes beyond the read buffer are discarded, mirroring a single stream read.
type clientConn struct {
	rawConn   *websocket.Conn
	peer      string
	writeWait time.Duration
}

func (c *clientConn) Read(p []byte) (int, error) {
	for {
		_, r, err := c.rawConn.NextReader()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				return 0, io.EOF
			}
			return 0, err
		}

		n, err := io.ReadFull(r, p)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		}
		if err != nil {
			return n, err
		}
		_, _ = io.Copy(io.Discard, r)
		if n == 0 {
			continue // empty frame
		}
		return n, nil
	}
}

// Write sends p as one text frame. Callers are serialized by the registry.
//
// gorilla refuses every write after the first failure, so a failed write also
// expires the read side: the session's pending read fails and the usual
// release-then-close path frees the slot.
func (c *clientConn) Write(p []byte) (int, error) {
	if c.writeWait > 0 {
		_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.writeWait))
	}
	if err := c.rawConn.WriteMessage(websocket.TextMessage, p); err != nil {
		_ = c.rawConn.SetReadDeadline(time.Now())
		return 0, err
	}
	return len(p), nil
}

func (c *clientConn) Close() error { return c.rawConn.Close() }

func (c *clientConn) Peer() string { return c.peer }
