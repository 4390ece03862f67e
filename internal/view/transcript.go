package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/spf13/afero"
)

// Transcript decorates a MessageList, copying every appended entry into a
// file.
type Transcript struct {
	MessageList

	mu   sync.Mutex
	file afero.File
	now  func() time.Time
}

// NewTranscript opens path on fs for appending, creating parent
// directories as needed.
func NewTranscript(next MessageList, fs afero.Fs, path string) (*Transcript, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return &Transcript{MessageList: next, file: f, now: time.Now}, nil
}

func (t *Transcript) Append(ctx context.Context, e Entry) error {
	if err := t.MessageList.Append(ctx, e); err != nil {
		return err
	}

	e.Username = flattenField(e.Username)
	e.Content = flattenField(e.Content)

	t.mu.Lock()
	defer t.mu.Unlock()
	line := t.now().UTC().Format(time.RFC3339) + "\t" + e.Username + "\t" + FormatLine(e) + "\n"
	if _, err := t.file.WriteString(line); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// flattenField keeps a value on one transcript line and in one column.
// Tabs and line breaks become spaces; other control characters are dropped.
func flattenField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// Close closes the transcript file.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}
