package relay

import (
	"context"
	"errors"
	"net"
	"time"

	"chatrelay/internal/registry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrSpawn is returned by Attach when no session goroutine could be started.
var ErrSpawn = errors.New("session limit reached")

// Notifier is told about slot ownership changes. It is called with the
// registry lock held, so a release is always reported before the slot's next
// claim. Implementations must not block.
type Notifier interface {
	Joined(slot int, peer string)
	Left(slot int, peer string)
}

type Options struct {
	// WriteWait is the per-write deadline applied to accepted TCP connections.
	WriteWait time.Duration
	// SessionLimit caps live session goroutines. Zero means twice the
	// registry capacity: a session that released its slot may still be
	// closing its connection when the slot is claimed again.
	SessionLimit int
	Notifier     Notifier
}

// Server binds accepted connections to registry slots and supervises one
// session goroutine per connection.
type Server struct {
	reg       *registry.Registry
	writeWait time.Duration
	sessions  errgroup.Group
}

func NewServer(reg *registry.Registry, opts Options) *Server {
	s := &Server{
		reg:       reg,
		writeWait: opts.WriteWait,
	}
	if n := opts.Notifier; n != nil {
		reg.OnChange(func(index int, peer string, active bool) {
			if active {
				n.Joined(index, peer)
			} else {
				n.Left(index, peer)
			}
		})
	}
	limit := opts.SessionLimit
	if limit <= 0 {
		limit = 2 * reg.Capacity()
	}
	s.sessions.SetLimit(limit)
	return s
}

// Serve accepts connections from ln until ln is closed or ctx is done.
// Accept errors are logged and retried with a short backoff.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	zap.L().Info("relay.started", zap.String("addr", ln.Addr().String()), zap.Int("capacity", s.reg.Capacity()))

	var backoff time.Duration
	for {
		rawConn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				zap.L().Info("relay.listener_closed")
				return nil
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff *= 2
			}
			if backoff > time.Second {
				backoff = time.Second
			}
			zap.L().Error("relay.accept", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		_, _ = s.Attach(NewTCPConn(rawConn, s.writeWait))
	}
}

// Attach reserves a slot for conn and starts its session. On any error conn
// has already been closed and no slot is held. Attach never waits for the
// session to finish.
func (s *Server) Attach(conn Conn) (int, error) {
	peer := conn.Peer()
	index, err := s.reg.Reserve(conn, peer)
	if err != nil {
		zap.L().Warn("relay.rejected", zap.String("peer", peer), zap.Error(err))
		closeQuietly(conn)
		return -1, err
	}
	zap.L().Info("relay.accepted", zap.Int("slot", index), zap.String("peer", peer))

	started := s.sessions.TryGo(func() error {
		s.runSession(index, conn)
		return nil
	})
	if !started {
		zap.L().Error("relay.spawn_failed", zap.Int("slot", index), zap.String("peer", peer), zap.Error(ErrSpawn))
		s.reg.Release(index)
		closeQuietly(conn)
		return -1, ErrSpawn
	}
	return index, nil
}

// Wait blocks until every session started so far has terminated. Call it
// after Serve has returned.
func (s *Server) Wait() {
	_ = s.sessions.Wait()
}

func closeQuietly(conn Conn) {
	if err := conn.Close(); err != nil {
		zap.L().Debug("relay.close", zap.String("peer", conn.Peer()), zap.Error(err))
	}
}
