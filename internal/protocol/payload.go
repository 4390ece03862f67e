package protocol

import (
	"encoding/json"
	"fmt"
)

// Message is a single chat line delivered by the relay.
type Message struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Payload is an inbound frame. Messages keep the relay's order.
type Payload struct {
	Messages []Message `json:"messages"`
}

// Decode parses an inbound frame. It fails with ErrMalformedFrame when the
// frame is not JSON, has no messages field, or lists a null message.
func Decode(frame []byte) (Payload, error) {
	var raw struct {
		Messages *[]*Message `json:"messages"`
	}
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if raw.Messages == nil {
		return Payload{}, fmt.Errorf("%w: missing messages field", ErrMalformedFrame)
	}

	msgs := make([]Message, 0, len(*raw.Messages))
	for i, m := range *raw.Messages {
		if m == nil {
			return Payload{}, fmt.Errorf("%w: message %d is null", ErrMalformedFrame, i)
		}
		msgs = append(msgs, *m)
	}
	return Payload{Messages: msgs}, nil
}
