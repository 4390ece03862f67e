package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/relaychat/internal/protocol"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		action protocol.Action
		want   string
	}{
		{
			name:   "history request",
			action: protocol.GetRecentMessages(),
			want:   `{"action":"getRecentMessages"}`,
		},
		{
			name:   "send message",
			action: protocol.SendMessage("client-1", "hello"),
			want:   `{"action":"sendMessage","username":"client-1","content":"hello"}`,
		},
		{
			name:   "html characters are not escaped",
			action: protocol.SendMessage("client-1", "<b>a & b</b>"),
			want:   `{"action":"sendMessage","username":"client-1","content":"<b>a & b</b>"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := protocol.Encode(tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(frame))
		})
	}
}

func TestEncode_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		action protocol.Action
	}{
		{name: "unknown action", action: protocol.Action{Action: "deleteEverything"}},
		{name: "empty action", action: protocol.Action{}},
		{name: "send without content", action: protocol.SendMessage("client-1", "")},
		{name: "send without username", action: protocol.SendMessage("", "hi")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := protocol.Encode(tt.action)
			assert.ErrorIs(t, err, protocol.ErrInvalidAction)
		})
	}
}

func TestDecode(t *testing.T) {
	payload, err := protocol.Decode([]byte(`{"messages":[
		{"username":"a","content":"A"},
		{"username":"b","content":"B"},
		{"username":"c","content":"C"}
	]}`))
	require.NoError(t, err)

	require.Len(t, payload.Messages, 3)
	assert.Equal(t, protocol.Message{Username: "a", Content: "A"}, payload.Messages[0])
	assert.Equal(t, "B", payload.Messages[1].Content)
	assert.Equal(t, "c", payload.Messages[2].Username)
}

func TestDecode_Empty(t *testing.T) {
	payload, err := protocol.Decode([]byte(`{"messages":[]}`))
	require.NoError(t, err)
	assert.Empty(t, payload.Messages)
}

func TestDecode_Malformed(t *testing.T) {
	frames := map[string]string{
		"not json":         `hello`,
		"missing messages": `{"history":[]}`,
		"null messages":    `{"messages":null}`,
		"wrong type":       `{"messages":"hi"}`,
		"top-level array":  `[{"username":"a","content":"b"}]`,
		"truncated":        `{"messages":[{"username":"a"`,
		"null message":     `{"messages":[null]}`,
		"null among many":  `{"messages":[{"username":"a","content":"b"},null]}`,
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			_, err := protocol.Decode([]byte(frame))
			assert.ErrorIs(t, err, protocol.ErrMalformedFrame)
		})
	}
}
