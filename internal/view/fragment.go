package view

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"

	"github.com/nfrund/relaychat/internal/rendering"
)

// Sink receives rendered htmx fragments bound for one browser tab.
type Sink interface {
	Push(ctx context.Context, fragment []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, fragment []byte) error

func (f SinkFunc) Push(ctx context.Context, fragment []byte) error {
	return f(ctx, fragment)
}

// FragmentList mirrors a browser tab's message container. Every operation
// is pushed as an out-of-band swap the htmx websocket extension applies.
type FragmentList struct {
	renderer rendering.Renderer
	sink     Sink
	raw      bool

	mu          sync.Mutex
	placeholder bool
	scrolls     int
}

// NewFragmentList creates a list for a page rendered with the placeholder.
func NewFragmentList(r rendering.Renderer, sink Sink, raw bool) *FragmentList {
	return &FragmentList{
		renderer:    r,
		sink:        sink,
		raw:         raw,
		placeholder: true,
	}
}

func (l *FragmentList) ShowsPlaceholder() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.placeholder
}

func (l *FragmentList) Clear(ctx context.Context) error {
	if err := l.push(ctx, ClearFragment()); err != nil {
		return err
	}
	l.mu.Lock()
	l.placeholder = false
	l.mu.Unlock()
	return nil
}

func (l *FragmentList) Append(ctx context.Context, e Entry) error {
	return l.push(ctx, AppendFragment(e, l.raw))
}

func (l *FragmentList) ScrollToLast(ctx context.Context) error {
	l.mu.Lock()
	l.scrolls++
	seq := l.scrolls
	l.mu.Unlock()
	return l.push(ctx, ScrollFragment(seq))
}

func (l *FragmentList) push(ctx context.Context, node g.Node) error {
	out, err := l.renderer.RenderComponent(ctx, node)
	if err != nil {
		return fmt.Errorf("render fragment: %w", err)
	}
	return l.sink.Push(ctx, out)
}

// FragmentCompose is a compose box whose browser input is reset through
// the sink when cleared.
type FragmentCompose struct {
	Compose
	renderer rendering.Renderer
	sink     Sink
}

// NewFragmentCompose creates an empty compose box bound to sink.
func NewFragmentCompose(r rendering.Renderer, sink Sink) *FragmentCompose {
	return &FragmentCompose{renderer: r, sink: sink}
}

func (c *FragmentCompose) Clear(ctx context.Context) error {
	c.Set("")
	out, err := c.renderer.RenderComponent(ctx, ComposeFragment())
	if err != nil {
		return fmt.Errorf("render compose box: %w", err)
	}
	return c.sink.Push(ctx, out)
}

// ClearFragment empties the message container.
func ClearFragment() g.Node {
	return h.Div(h.ID(ContainerID), hx.SwapOOB("innerHTML"))
}

// ResetFragment puts the container back to its empty state. A tab that
// reconnects its socket gets a fresh client, so the page must start over.
func ResetFragment() g.Node {
	return h.Div(h.ID(ContainerID), hx.SwapOOB("innerHTML"), PlaceholderNode())
}

// AppendFragment adds one message to the end of the container.
func AppendFragment(e Entry, raw bool) g.Node {
	return h.Div(h.ID(ContainerID), hx.SwapOOB("beforeend"), MessageNode(e, raw))
}

// ScrollFragment replaces the scroll signal; the page scrolls the last
// message into view whenever it is swapped. seq keeps successive signals
// distinct.
func ScrollFragment(seq int) g.Node {
	return h.Div(
		h.ID(ScrollSignalID),
		hx.SwapOOB("true"),
		h.Data("seq", strconv.Itoa(seq)),
		g.Attr("hidden"),
	)
}

// ComposeFragment is an empty compose input swapped over the old one.
func ComposeFragment() g.Node {
	return ComposeInput(hx.SwapOOB("true"))
}

// NoticeFragment shows text in the page's notice area.
func NoticeFragment(text string) g.Node {
	return h.Div(h.ID(NoticeID), hx.SwapOOB("true"), h.Class("notice"), g.Text(text))
}

// ComposeInput is the compose box element.
func ComposeInput(extra ...g.Node) g.Node {
	return h.Input(
		h.ID(ComposeID),
		h.Name(ComposeID),
		h.Type("text"),
		h.AutoComplete("off"),
		h.Placeholder("Type a message"),
		g.Group(extra),
	)
}
