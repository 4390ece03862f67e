package view

import (
	g "maragu.dev/gomponents"
	c "maragu.dev/gomponents/components"
	h "maragu.dev/gomponents/html"
)

// MessageNode renders an entry. Content is escaped unless raw is set.
func MessageNode(e Entry, raw bool) g.Node {
	content := g.Text(e.Content)
	if raw {
		content = g.Raw(e.Content)
	}

	return h.Div(
		c.Classes{"message": true, "self-message": e.Self},
		h.B(g.Text(e.Label())),
		g.Text(" "),
		content,
	)
}

// PlaceholderNode is the empty-state entry a fresh list shows.
func PlaceholderNode() g.Node {
	return h.Div(
		h.ID(PlaceholderID),
		h.Class("message"),
		g.Text(PlaceholderText),
	)
}
