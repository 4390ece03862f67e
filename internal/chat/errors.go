package chat

import "errors"

var (
	// ErrNotStarted is returned by Post before Start.
	ErrNotStarted = errors.New("chat client not started")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("chat client already started")
	// ErrClosed is returned once the client has stopped.
	ErrClosed = errors.New("chat client closed")
)
