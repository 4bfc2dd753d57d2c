package relay

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// runSession pumps conn until it yields EOF or an error. Every chunk read is
// tagged with index and broadcast to all active slots, the sender included.
// There is no idle timeout: the session lives as long as the peer does.
func (s *Server) runSession(index int, conn Conn) {
	buf := make([]byte, MaxPayload)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.broadcast(index, buf[:n])
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			zap.L().Info("relay.disconnected", zap.Int("slot", index), zap.String("peer", conn.Peer()))
		} else {
			zap.L().Warn("relay.read_failed", zap.Int("slot", index), zap.String("peer", conn.Peer()), zap.Error(err))
		}
		break
	}

	// Release before close: a broadcast in flight must never see an active
	// slot whose handle is already closed.
	s.reg.Release(index)
	if err := conn.Close(); err != nil {
		zap.L().Debug("relay.close", zap.Int("slot", index), zap.Error(err))
	}
}

func (s *Server) broadcast(index int, payload []byte) {
	tagged := Tag(index, payload)
	delivered, err := s.reg.Broadcast(index, tagged, false)
	if err != nil {
		zap.L().Warn("relay.broadcast_partial",
			zap.Int("sender", index),
			zap.Int("delivered", delivered),
			zap.Error(err),
		)
		return
	}
	zap.L().Debug("relay.broadcast", zap.Int("sender", index), zap.Int("delivered", delivered), zap.Int("bytes", len(tagged)))
}
