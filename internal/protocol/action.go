// Package protocol implements the JSON frames exchanged with the relay.
//
// The client sends actions:
//
//	{"action":"getRecentMessages"}
//	{"action":"sendMessage","username":"client-7","content":"hi"}
//
// and receives payloads:
//
//	{"messages":[{"username":"client-7","content":"hi"}]}
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Action names understood by the relay.
const (
	ActionGetRecentMessages = "getRecentMessages"
	ActionSendMessage       = "sendMessage"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Action is an outbound request to the relay.
type Action struct {
	Action   string `json:"action" validate:"oneof=getRecentMessages sendMessage"`
	Username string `json:"username,omitempty" validate:"required_if=Action sendMessage"`
	Content  string `json:"content,omitempty" validate:"required_if=Action sendMessage"`
}

// GetRecentMessages asks the relay for its message history.
func GetRecentMessages() Action {
	return Action{Action: ActionGetRecentMessages}
}

// SendMessage posts content under username.
func SendMessage(username, content string) Action {
	return Action{
		Action:   ActionSendMessage,
		Username: username,
		Content:  content,
	}
}

// Validate checks that the action is well formed.
func (a Action) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return nil
}

// Encode validates the action and serializes it as a single text frame.
// HTML characters are left unescaped so the frame matches what a browser's
// JSON.stringify would produce.
func Encode(a Action) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(a); err != nil {
		return nil, fmt.Errorf("encode %s action: %w", a.Action, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
