package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"
)

// TerminalList prints messages as lines of text. The terminal follows its
// own output, so scrolling is a no-op.
type TerminalList struct {
	w   io.Writer
	raw bool

	mu          sync.Mutex
	placeholder bool
}

// NewTerminalList creates a list writing to w. Unless raw is set, control
// characters in usernames and content are stripped before printing.
func NewTerminalList(w io.Writer, raw bool) *TerminalList {
	return &TerminalList{w: w, raw: raw, placeholder: true}
}

// ShowPlaceholder prints the empty-state line.
func (l *TerminalList) ShowPlaceholder() error {
	_, err := fmt.Fprintln(l.w, PlaceholderText)
	return err
}

func (l *TerminalList) ShowsPlaceholder() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.placeholder
}

func (l *TerminalList) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.placeholder = false
	return nil
}

func (l *TerminalList) Append(ctx context.Context, e Entry) error {
	if !l.raw {
		e.Username = stripControl(e.Username)
		e.Content = stripControl(e.Content)
	}
	_, err := fmt.Fprintln(l.w, FormatLine(e))
	return err
}

func (l *TerminalList) ScrollToLast(ctx context.Context) error {
	return nil
}

// FormatLine is the plain-text rendition of an entry.
func FormatLine(e Entry) string {
	return e.Label() + " " + e.Content
}

// stripControl drops control characters so relayed text cannot drive the
// terminal. Tabs survive.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, s)
}
