package chat_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/relaychat/internal/channel"
	"github.com/nfrund/relaychat/internal/chat"
	"github.com/nfrund/relaychat/internal/identity"
	"github.com/nfrund/relaychat/internal/protocol"
	"github.com/nfrund/relaychat/internal/rendering"
	"github.com/nfrund/relaychat/internal/testutils"
	"github.com/nfrund/relaychat/internal/view"
)

const historyFrame = `{"action":"getRecentMessages"}`

// countingList records how often the placeholder was cleared.
type countingList struct {
	*view.HTMLList
	clears atomic.Int32
}

func (l *countingList) Clear(ctx context.Context) error {
	l.clears.Add(1)
	return l.HTMLList.Clear(ctx)
}

type errorLog struct {
	mu   sync.Mutex
	errs []error
}

func (e *errorLog) handle(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

func (e *errorLog) all() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.errs...)
}

type fixture struct {
	client    *chat.Client
	connector *testutils.FakeConnector
	list      *countingList
	compose   *view.Compose
	errs      *errorLog
}

func newFixture(t *testing.T, opts ...chat.Option) *fixture {
	t.Helper()
	testutils.SilenceLogs(t)

	f := &fixture{
		connector: testutils.NewFakeConnector(),
		list:      &countingList{HTMLList: view.NewHTMLList(rendering.NewUniversalRenderer(), false)},
		compose:   view.NewCompose(),
		errs:      &errorLog{},
	}
	opts = append([]chat.Option{
		chat.WithIdentity(identity.FromNumber(7)),
		chat.WithErrorHandler(f.errs.handle),
	}, opts...)
	f.client = chat.New(chat.Dependencies{
		Connector: f.connector,
		List:      f.list,
		Compose:   f.compose,
	}, opts...)
	t.Cleanup(func() { _ = f.client.Close() })
	return f
}

// start starts the client and opens its channel.
func (f *fixture) start(t *testing.T) *testutils.FakeChannel {
	t.Helper()
	require.NoError(t, f.client.Start(context.Background()))
	ch := f.connector.Last()
	require.NotNil(t, ch)
	ch.Open()
	require.Eventually(t, func() bool { return len(ch.Sent()) == 1 }, testutils.Timeout, 5*time.Millisecond)
	return ch
}

func (f *fixture) waitItems(t *testing.T, n int) []string {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.list.Items()) == n }, testutils.Timeout, 5*time.Millisecond)
	return f.list.Items()
}

func TestNew_GeneratesIdentity(t *testing.T) {
	c := chat.New(chat.Dependencies{Connector: testutils.NewFakeConnector()})
	assert.Regexp(t, `^client-\d{1,4}$`, c.Identity().String())
}

func TestStart_RequestsHistoryOnReady(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.client.Start(context.Background()))

	ch := f.connector.Last()
	require.NotNil(t, ch)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ch.Sent(), "nothing is sent before the channel is ready")

	ch.Open()
	require.Eventually(t, func() bool { return len(ch.Sent()) == 1 }, testutils.Timeout, 5*time.Millisecond)
	assert.JSONEq(t, historyFrame, ch.Sent()[0])
}

func TestStart_RequestsHistoryAgainAfterReconnect(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	ch.Drop()
	ch.Open()

	require.Eventually(t, func() bool { return len(ch.Sent()) == 2 }, testutils.Timeout, 5*time.Millisecond)
	assert.JSONEq(t, historyFrame, ch.Sent()[1])
}

func TestStart_Twice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.client.Start(context.Background()))
	assert.ErrorIs(t, f.client.Start(context.Background()), chat.ErrAlreadyStarted)
}

func TestStart_ConnectFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("dial refused")
	f.connector.FailConnect(boom)

	err := f.client.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, f.client.Post(context.Background()), chat.ErrNotStarted)
}

func TestRender_ClearsPlaceholderOnce(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)
	require.True(t, f.list.ShowsPlaceholder())

	ch.Deliver(`{"messages":[{"username":"client-3","content":"hello"},{"username":"client-7","content":"hi"}]}`)
	ch.Deliver(`{"messages":[{"username":"client-3","content":"again"}]}`)

	items := f.waitItems(t, 3)
	assert.Equal(t, `<div class="message"><b>(client-3)</b> hello</div>`, items[0])
	assert.Equal(t, `<div class="message self-message"><b>(You)</b> hi</div>`, items[1])
	assert.Equal(t, `<div class="message"><b>(client-3)</b> again</div>`, items[2])

	assert.False(t, f.list.ShowsPlaceholder())
	assert.Equal(t, int32(1), f.list.clears.Load())
	assert.Equal(t, 2, f.list.ScrolledTo())
}

func TestRender_EmptyPayloadKeepsPlaceholder(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	ch.Deliver(`{"messages":[]}`)
	ch.Deliver(`{"messages":[{"username":"client-1","content":"first"}]}`)

	f.waitItems(t, 1)
	assert.Equal(t, int32(1), f.list.clears.Load())
}

func TestRender_EscapesContent(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	ch.Deliver(`{"messages":[{"username":"client-2","content":"<b>x</b>"}]}`)

	items := f.waitItems(t, 1)
	assert.Contains(t, items[0], "&lt;b&gt;x&lt;/b&gt;")
}

func TestRender_MalformedFrameIsReported(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	ch.Deliver(`not json`)
	ch.Deliver(`{"messages":null}`)
	ch.Deliver(`{"messages":[{"username":"client-2","content":"still here"}]}`)

	items := f.waitItems(t, 1)
	assert.Contains(t, items[0], "still here")

	errs := f.errs.all()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, protocol.ErrMalformedFrame)
	}
}

func TestRender_DedupeWindow(t *testing.T) {
	f := newFixture(t, chat.WithDedupeWindow(8))
	ch := f.start(t)

	frame := `{"messages":[{"username":"client-7","content":"hi"}]}`
	ch.Deliver(frame)
	ch.Deliver(frame)
	ch.Deliver(`{"messages":[{"username":"client-7","content":"bye"}]}`)

	items := f.waitItems(t, 2)
	assert.Contains(t, items[0], "hi")
	assert.Contains(t, items[1], "bye")
}

func TestRender_DuplicatesShownByDefault(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	frame := `{"messages":[{"username":"client-7","content":"hi"}]}`
	ch.Deliver(frame)
	ch.Deliver(frame)

	f.waitItems(t, 2)
}

func TestPost_SendsAndClears(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	f.compose.Set("hello <world>")
	require.NoError(t, f.client.Post(context.Background()))

	sent := ch.Sent()
	require.Len(t, sent, 2)
	assert.JSONEq(t, `{"action":"sendMessage","username":"client-7","content":"hello <world>"}`, sent[1])
	assert.Empty(t, f.compose.Value())
}

func TestPost_KeepsSurroundingWhitespace(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	f.compose.Set("  padded ")
	require.NoError(t, f.client.Post(context.Background()))

	sent := ch.Sent()
	require.Len(t, sent, 2)
	assert.JSONEq(t, `{"action":"sendMessage","username":"client-7","content":"  padded "}`, sent[1])
}

func TestPost_BlankIsNoop(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	for _, v := range []string{"", " ", "\t\n "} {
		f.compose.Set(v)
		require.NoError(t, f.client.Post(context.Background()))
		assert.Equal(t, v, f.compose.Value())
	}
	assert.Len(t, ch.Sent(), 1)
}

func TestPost_FailureKeepsCompose(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	boom := errors.New("write failed")
	ch.FailSends(boom)
	f.compose.Set("keep me")

	err := f.client.Post(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "keep me", f.compose.Value())

	ch.FailSends(nil)
	require.NoError(t, f.client.Post(context.Background()))
	assert.Empty(t, f.compose.Value())
}

func TestPost_NotReady(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.client.Start(context.Background()))

	f.compose.Set("too early")
	err := f.client.Post(context.Background())
	assert.ErrorIs(t, err, channel.ErrNotReady)
	assert.Equal(t, "too early", f.compose.Value())
}

func TestPost_BeforeStart(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.client.Post(context.Background()), chat.ErrNotStarted)
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	ch := f.start(t)

	require.NoError(t, f.client.Close())
	require.NoError(t, f.client.Close())

	assert.True(t, ch.Closed())
	assert.ErrorIs(t, f.client.Post(context.Background()), chat.ErrClosed)
	assert.ErrorIs(t, f.client.Start(context.Background()), chat.ErrClosed)

	select {
	case <-f.client.Done():
	default:
		t.Fatal("event loop still running after Close")
	}
}

func TestClose_BeforeStart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.client.Close())
	assert.ErrorIs(t, f.client.Start(context.Background()), chat.ErrClosed)
}

func TestStart_ContextCancelStopsLoop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.client.Start(ctx))

	cancel()
	select {
	case <-f.client.Done():
	case <-time.After(testutils.Timeout):
		t.Fatal("event loop did not stop")
	}
}

func TestClient_AgainstRelay(t *testing.T) {
	testutils.SilenceLogs(t)

	relay := testutils.NewRelay(t, true)
	relay.SetHistory(protocol.Message{Username: "client-1", Content: "earlier"})

	list := view.NewHTMLList(rendering.NewUniversalRenderer(), false)
	compose := view.NewCompose()
	c := chat.New(chat.Dependencies{
		Connector: channel.NewWebsocketConnector(relay.URL(),
			channel.WithBackoff(10*time.Millisecond, 50*time.Millisecond),
		),
		List:    list,
		Compose: compose,
	}, chat.WithIdentity(identity.FromNumber(42)))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return len(list.Items()) == 1 }, testutils.Timeout, 10*time.Millisecond)
	assert.Contains(t, list.Items()[0], "(client-1)")

	compose.Set("hello relay")
	require.NoError(t, c.Post(context.Background()))
	assert.Empty(t, compose.Value())

	require.Eventually(t, func() bool { return len(list.Items()) == 2 }, testutils.Timeout, 10*time.Millisecond)
	assert.Equal(t, `<div class="message self-message"><b>(You)</b> hello relay</div>`, list.Items()[1])
	assert.Equal(t, 1, list.ScrolledTo())
}
