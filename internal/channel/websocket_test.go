package channel_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/relaychat/internal/channel"
	"github.com/nfrund/relaychat/internal/testutils"
)

// recorder collects handler invocations from the supervisor goroutine.
type recorder struct {
	mu     sync.Mutex
	ready  int
	frames []string
	readyC chan struct{}
}

func newRecorder() *recorder {
	return &recorder{readyC: make(chan struct{}, 16)}
}

func (r *recorder) handlers() channel.Handlers {
	return channel.Handlers{
		OnReady: func() {
			r.mu.Lock()
			r.ready++
			r.mu.Unlock()
			r.readyC <- struct{}{}
		},
		OnMessage: func(frame []byte) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.frames = append(r.frames, string(frame))
		},
	}
}

func (r *recorder) readyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *recorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

func waitReady(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.readyC:
	case <-time.After(testutils.Timeout):
		t.Fatal("timed out waiting for channel to become ready")
	}
}

func waitAccepted(t *testing.T, relay *testutils.Relay) {
	t.Helper()
	select {
	case <-relay.Accepted():
	case <-time.After(testutils.Timeout):
		t.Fatal("timed out waiting for relay to accept")
	}
}

func fastConnector(endpoint string) *channel.WebsocketConnector {
	return channel.NewWebsocketConnector(endpoint,
		channel.WithBackoff(10*time.Millisecond, 50*time.Millisecond),
		channel.WithWriteTimeout(time.Second),
	)
}

func TestWebsocketConnector_ReadyAndSend(t *testing.T) {
	testutils.SilenceLogs(t)
	relay := testutils.NewRelay(t, false)
	rec := newRecorder()

	ch, err := fastConnector(relay.URL()).Connect(context.Background(), rec.handlers())
	require.NoError(t, err)
	defer ch.Close()

	waitReady(t, rec)
	assert.True(t, ch.Ready())

	require.NoError(t, ch.Send(context.Background(), []byte(`{"action":"getRecentMessages"}`)))

	select {
	case got := <-relay.Received():
		assert.Equal(t, `{"action":"getRecentMessages"}`, got)
	case <-time.After(testutils.Timeout):
		t.Fatal("relay did not receive frame")
	}
}

func TestWebsocketConnector_DeliversFramesInOrder(t *testing.T) {
	testutils.SilenceLogs(t)
	relay := testutils.NewRelay(t, false)
	rec := newRecorder()

	ch, err := fastConnector(relay.URL()).Connect(context.Background(), rec.handlers())
	require.NoError(t, err)
	defer ch.Close()
	waitReady(t, rec)
	waitAccepted(t, relay)

	frames := []string{`{"messages":[1]}`, `{"messages":[2]}`, `{"messages":[3]}`}
	for _, f := range frames {
		relay.Broadcast(f)
	}

	require.Eventually(t, func() bool {
		return len(rec.received()) == len(frames)
	}, testutils.Timeout, 10*time.Millisecond)
	assert.Equal(t, frames, rec.received())
}

func TestWebsocketConnector_ReconnectFiresReadyAgain(t *testing.T) {
	testutils.SilenceLogs(t)
	relay := testutils.NewRelay(t, false)
	rec := newRecorder()

	ch, err := fastConnector(relay.URL()).Connect(context.Background(), rec.handlers())
	require.NoError(t, err)
	defer ch.Close()
	waitReady(t, rec)
	waitAccepted(t, relay)

	relay.DropAll()
	waitReady(t, rec)

	assert.Equal(t, 2, rec.readyCount())
	assert.True(t, ch.Ready())
}

func TestWebsocketConnector_BacksOffWhenRelayHangsUp(t *testing.T) {
	testutils.SilenceLogs(t)

	var accepts atomic.Int32
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepts.Add(1)
		conn.Close()
	}))
	defer srv.Close()

	rec := newRecorder()
	connector := channel.NewWebsocketConnector("ws"+strings.TrimPrefix(srv.URL, "http"),
		channel.WithBackoff(200*time.Millisecond, time.Second),
	)
	ch, err := connector.Connect(context.Background(), rec.handlers())
	require.NoError(t, err)
	defer ch.Close()

	waitReady(t, rec)
	time.Sleep(500 * time.Millisecond)

	assert.LessOrEqual(t, accepts.Load(), int32(4))
	assert.LessOrEqual(t, rec.readyCount(), 4)
}

func TestWebsocketConnector_SendBeforeReady(t *testing.T) {
	testutils.SilenceLogs(t)

	// Reserve a port and release it so dials are refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := "ws://" + ln.Addr().String()
	require.NoError(t, ln.Close())

	ch, err := fastConnector(endpoint).Connect(context.Background(), newRecorder().handlers())
	require.NoError(t, err)

	assert.False(t, ch.Ready())
	assert.ErrorIs(t, ch.Send(context.Background(), []byte(`{}`)), channel.ErrNotReady)

	require.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Send(context.Background(), []byte(`{}`)), channel.ErrClosed)
	assert.NoError(t, ch.Close(), "second close is a no-op")
}

func TestWebsocketConnector_ContextCancelStops(t *testing.T) {
	testutils.SilenceLogs(t)
	relay := testutils.NewRelay(t, false)
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := fastConnector(relay.URL()).Connect(ctx, rec.handlers())
	require.NoError(t, err)
	waitReady(t, rec)

	cancel()
	require.Eventually(t, func() bool { return !ch.Ready() }, testutils.Timeout, 10*time.Millisecond)
	require.NoError(t, ch.Close())
	assert.Equal(t, 1, rec.readyCount())
}

func TestWebsocketConnector_EmptyEndpoint(t *testing.T) {
	_, err := channel.NewWebsocketConnector("").Connect(context.Background(), channel.Handlers{})
	assert.Error(t, err)
}
