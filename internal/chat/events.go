package chat

import "context"

// Mailbox requests processed by the client's event loop.

type readyEvent struct{}

type frameEvent struct {
	frame []byte
}

type postReq struct {
	ctx   context.Context
	reply chan error
}
