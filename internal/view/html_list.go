package view

import (
	"context"
	"fmt"
	"strings"
	"sync"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/nfrund/relaychat/internal/rendering"
)

// HTMLList keeps the message container as server-side HTML. It is the
// DOM stand-in embedders and tests read back from.
type HTMLList struct {
	renderer rendering.Renderer
	raw      bool

	mu          sync.Mutex
	placeholder bool
	items       []string
	scrolledTo  int
}

// NewHTMLList creates a list showing the placeholder entry.
func NewHTMLList(r rendering.Renderer, raw bool) *HTMLList {
	return &HTMLList{
		renderer:    r,
		raw:         raw,
		placeholder: true,
		scrolledTo:  -1,
	}
}

func (l *HTMLList) ShowsPlaceholder() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.placeholder
}

func (l *HTMLList) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.placeholder = false
	l.items = nil
	l.scrolledTo = -1
	return nil
}

func (l *HTMLList) Append(ctx context.Context, e Entry) error {
	out, err := l.renderer.RenderComponent(ctx, MessageNode(e, l.raw))
	if err != nil {
		return fmt.Errorf("render message: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, string(out))
	return nil
}

func (l *HTMLList) ScrollToLast(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scrolledTo = len(l.items) - 1
	return nil
}

// Items returns the rendered message entries in order, placeholder excluded.
func (l *HTMLList) Items() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.items...)
}

// ScrolledTo is the index of the entry last scrolled into view, or -1.
func (l *HTMLList) ScrolledTo() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scrolledTo
}

// Node renders the whole container, placeholder included when shown.
func (l *HTMLList) Node() g.Node {
	l.mu.Lock()
	defer l.mu.Unlock()

	children := make([]g.Node, 0, len(l.items)+1)
	if l.placeholder {
		children = append(children, PlaceholderNode())
	}
	children = append(children, g.Raw(strings.Join(l.items, "")))
	return h.Div(h.ID(ContainerID), g.Group(children))
}
