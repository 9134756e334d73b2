package realtime_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn feeds inbound frames from in and records outbound frames on out.
type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte),
		out:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.in:
		return realtime.TextMessage, msg, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.out <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestSessionAnonymousIsClosedImmediately(t *testing.T) {
	hub := realtime.NewHub(4)
	conn := newFakeConn()
	session := realtime.NewSession(hub, "", conn)

	session.Run()

	assert.Equal(t, realtime.StateClosed, session.State())
	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, hub.Subscribers(""))
}

func TestSessionLifecycle(t *testing.T) {
	hub := realtime.NewHub(4)
	conn := newFakeConn()
	session := realtime.NewSession(hub, "user-1", conn)
	assert.Equal(t, realtime.StateConnecting, session.State())

	done := make(chan struct{})
	go func() {
		session.Run()
		close(done)
	}()

	waitFor(t, func() bool { return session.State() == realtime.StateSubscribed })
	waitFor(t, func() bool { return hub.Subscribers("user-1") == 1 })

	hub.Broadcast("user-1", []byte(`{"id":"n-1"}`))
	assert.Equal(t, []byte(`{"id":"n-1"}`), <-conn.out)

	conn.in <- []byte("ping")
	assert.JSONEq(t, `{"message":"pong"}`, string(<-conn.out))
	assert.Equal(t, 1, hub.Subscribers("user-1"), "ping has no side effects")

	require.NoError(t, conn.Close())
	<-done

	assert.Equal(t, realtime.StateClosed, session.State())
	assert.Equal(t, 0, hub.Subscribers("user-1"))
}

func TestHubServeDeliversToAllConnectionsOfUser(t *testing.T) {
	hub := realtime.NewHub(4)
	first, second := newFakeConn(), newFakeConn()
	go hub.Serve("user-1", first)
	go hub.Serve("user-1", second)
	waitFor(t, func() bool { return hub.Subscribers("user-1") == 2 })

	hub.Broadcast("user-1", []byte("hello"))

	assert.Equal(t, []byte("hello"), <-first.out)
	assert.Equal(t, []byte("hello"), <-second.out)

	first.Close()
	waitFor(t, func() bool { return hub.Subscribers("user-1") == 1 })
	second.Close()
	waitFor(t, func() bool { return hub.Subscribers("user-1") == 0 })
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", realtime.StateConnecting.String())
	assert.Equal(t, "authenticated", realtime.StateAuthenticated.String())
	assert.Equal(t, "subscribed", realtime.StateSubscribed.String())
	assert.Equal(t, "closed", realtime.StateClosed.String())
}
