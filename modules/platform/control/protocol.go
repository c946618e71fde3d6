// Package control is the local channel between pane controllers and a
// running view: one unix socket per view, newline-delimited JSON messages.
package control

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"
)

// MessageType identifies a control message
type MessageType string

const (
	// Controller -> view
	MsgClose   MessageType = "close"   // Exit the view
	MsgPing    MessageType = "ping"    // Liveness check
	MsgRefresh MessageType = "refresh" // Rebuild now
	MsgSetCwd  MessageType = "set_cwd" // Re-root at Cwd

	// View -> controller
	MsgReady MessageType = "ready" // First build done, or re-rooted
	MsgPong  MessageType = "pong"  // Answer to ping
)

// DefaultTimeout bounds one request/response exchange
const DefaultTimeout = 3 * time.Second

// Message is the envelope for every control message
type Message struct {
	Type MessageType `json:"type"`
	Cwd  string      `json:"cwd,omitempty"`
}

// IsCommand reports whether the type travels controller -> view
func (t MessageType) IsCommand() bool {
	switch t {
	case MsgClose, MsgPing, MsgRefresh, MsgSetCwd:
		return true
	}
	return false
}

// IsReply reports whether the type travels view -> controller
func (t MessageType) IsReply() bool {
	return t == MsgReady || t == MsgPong
}

// Encode serializes a message to JSON with newline delimiter
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeMessage parses one line. Malformed lines and unknown types report false.
func DecodeMessage(line []byte) (Message, bool) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, false
	}
	if !msg.Type.IsCommand() && !msg.Type.IsReply() {
		return Message{}, false
	}
	return msg, true
}

// Sanitize maps id onto [A-Za-z0-9_-] so it can be embedded in a file name
func Sanitize(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, c := range id {
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SocketPath returns the socket path of the view identified by id
func SocketPath(dir, id string) string {
	return filepath.Join(dir, "panetree-"+Sanitize(id)+".sock")
}
