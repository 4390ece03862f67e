package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
)

// templNode lets a templ component sit inside a gomponents tree.
type templNode struct {
	component templ.Component
}

// Render satisfies g.Node. gomponents carries no context, so the component
// renders with a background one.
func (n templNode) Render(w io.Writer) error {
	return n.component.Render(context.Background(), w)
}

// TemplNode adapts c into a gomponents node.
func TemplNode(c templ.Component) g.Node {
	return templNode{component: c}
}
