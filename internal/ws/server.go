package ws

import (
	"net/http"
	"time"

	"chatrelay/internal/relay"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WsServer lets websocket clients join the relay next to the TCP ones. They
// take slots from the same registry and see the same broadcasts.
type WsServer struct {
	relay     *relay.Server
	upgrader  websocket.Upgrader
	writeWait time.Duration
}

// NewWsServer serves websocket peers for r. wait is the per-write deadline;
// zero disables it, as for TCP peers.
func NewWsServer(r *relay.Server, wait time.Duration) *WsServer {
	return &WsServer{
		relay: r,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  relay.MaxPayload,
			WriteBufferSize: relay.MaxTagged,
			CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
		},
		writeWait: wait,
	}
}

// Handle is the gin entry point for GET /ws.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}

	conn := &clientConn{
		rawConn:   rawConn,
		peer:      rawConn.RemoteAddr().String(),
		writeWait: s.writeWait,
	}
	// Attach owns conn from here on, rejected or not.
	if _, err := s.relay.Attach(conn); err != nil {
		zap.L().Debug("ws.attach", zap.String("peer", conn.peer), zap.Error(err))
	}
}
