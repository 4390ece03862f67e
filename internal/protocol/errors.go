package protocol

import "errors"

var (
	// ErrMalformedFrame is returned for inbound frames that are not a payload.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrInvalidAction is returned when an outbound action fails validation.
	ErrInvalidAction = errors.New("invalid action")
)
