package relay

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"chatrelay/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T, capacity int) (*Server, *registry.Registry, string, func()) {
	t.Helper()
	srv, reg := newTestServer(t, capacity, Options{WriteWait: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("Serve did not return after cancel")
		}
	}
	return srv, reg, ln.Addr().String(), stop
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return c
}

func readN(t *testing.T, c net.Conn, n int) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(waitFor)))
	buf := make([]byte, n)
	_, err := io.ReadFull(c, buf)
	require.NoError(t, err)
	return string(buf)
}

func TestRelayEndToEnd(t *testing.T) {
	srv, reg, addr, stop := startRelay(t, 2)

	clientA := dial(t, addr)
	require.Eventually(t, func() bool { return reg.Occupied() == 1 }, waitFor, tick)
	clientB := dial(t, addr)
	require.Eventually(t, func() bool { return reg.Occupied() == 2 }, waitFor, tick)

	snap := reg.Snapshot()
	assert.Equal(t, clientA.LocalAddr().String(), snap[0].Peer)
	assert.Equal(t, clientB.LocalAddr().String(), snap[1].Peer)

	// A third client is closed straight away and the table is untouched.
	extra := dial(t, addr)
	require.NoError(t, extra.SetReadDeadline(time.Now().Add(waitFor)))
	_, err := extra.Read(make([]byte, 1))
	assert.Error(t, err)
	_ = extra.Close()
	assert.Equal(t, snap, reg.Snapshot())

	_, err = clientA.Write([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "[Client 0] hi", readN(t, clientA, len("[Client 0] hi")))
	assert.Equal(t, "[Client 0] hi", readN(t, clientB, len("[Client 0] hi")))

	require.NoError(t, clientB.Close())
	require.Eventually(t, func() bool { return !reg.Snapshot()[1].Active }, waitFor, tick)
	assert.Equal(t, 1, reg.Occupied())

	clientC := dial(t, addr)
	require.Eventually(t, func() bool { return reg.Occupied() == 2 }, waitFor, tick)
	assert.Equal(t, clientC.LocalAddr().String(), reg.Snapshot()[1].Peer)
	assert.Len(t, reg.Snapshot(), 2)

	_, err = clientC.Write([]byte("yo"))
	require.NoError(t, err)
	assert.Equal(t, "[Client 1] yo", readN(t, clientA, len("[Client 1] yo")))
	assert.Equal(t, "[Client 1] yo", readN(t, clientC, len("[Client 1] yo")))

	stop()
	_ = clientA.Close()
	_ = clientC.Close()
	srv.Wait()
	assert.Equal(t, 0, reg.Occupied())
}

func TestConcurrentConnectsGetDistinctSlots(t *testing.T) {
	const capacity = 16
	srv, reg, addr, stop := startRelay(t, capacity)

	conns := make([]net.Conn, capacity)
	errs := make(chan error, capacity)
	for i := range conns {
		go func(i int) {
			c, err := net.Dial("tcp", addr)
			conns[i] = c
			errs <- err
		}(i)
	}
	for range conns {
		require.NoError(t, <-errs)
	}
	require.Eventually(t, func() bool { return reg.Occupied() == capacity }, waitFor, tick)

	peers := map[string]bool{}
	for i, s := range reg.Snapshot() {
		assert.Equal(t, i, s.Index)
		assert.True(t, s.Active)
		peers[s.Peer] = true
	}
	assert.Len(t, peers, capacity)

	stop()
	for _, c := range conns {
		_ = c.Close()
	}
	srv.Wait()
	assert.Equal(t, 0, reg.Occupied())
}

func TestServeReturnsWhenListenerClosed(t *testing.T) {
	srv, _ := newTestServer(t, 1, Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()
	require.NoError(t, ln.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Serve did not return")
	}
}
