// Package view holds the UI surfaces a chat client drives: the message list
// and the compose box, with HTML, htmx-fragment and terminal renditions.
package view

import "context"

// Element IDs shared by the widget page and the fragments that update it.
const (
	ContainerID     = "message-container"
	PlaceholderID   = "empty-message"
	ComposeID       = "post-bar"
	NoticeID        = "notice"
	ScrollSignalID  = "scroll-signal"
	PlaceholderText = "No messages yet"
)

// Entry is a single rendered chat line.
type Entry struct {
	Username string
	Content  string
	// Self marks messages authored under the local identity.
	Self bool
}

// Label is the author marker shown before the content.
func (e Entry) Label() string {
	if e.Self {
		return "(You)"
	}
	return "(" + e.Username + ")"
}

// MessageList is an ordered, append-only list of rendered messages that
// starts out showing a single placeholder entry.
type MessageList interface {
	// ShowsPlaceholder reports whether the placeholder is the only entry.
	ShowsPlaceholder() bool
	// Clear removes every entry, the placeholder included.
	Clear(ctx context.Context) error
	// Append renders e at the end of the list.
	Append(ctx context.Context, e Entry) error
	// ScrollToLast brings the last entry into view.
	ScrollToLast(ctx context.Context) error
}

// ComposeBox is the single-line input holding the next message.
type ComposeBox interface {
	Value() string
	Clear(ctx context.Context) error
}
