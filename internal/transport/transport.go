// package transport implements the progress delivery channels for mix
// generation sessions.
//
// Two interchangeable transports carry the same message taxonomy: a
// bidirectional WebSocket (primary) and a one-way Server-Sent-Events stream
// (fallback). Both decode the backend's {"type": ..., "data": {...}} JSON
// framing into [Message] values.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message types delivered by both transports.
const (
	TypeConnected = "connected"
	TypeProgress  = "progress"
	TypeComplete  = "complete"
	TypeError     = "error"
	TypePing      = "ping"
	TypePong      = "pong"
)

// ProgressData is the payload of a progress message. Stage tags are decoded
// by the session layer; Progress is the backend's percentage for the tag.
type ProgressData struct {
	Stage        string `json:"stage"`
	Progress     int    `json:"progress"`
	Detail       string `json:"detail"`
	Source       string `json:"source,omitempty"`
	CurrentTrack string `json:"current_track,omitempty"`
}

// CompleteData is the payload of a completion message.
type CompleteData struct {
	MixURL          string  `json:"cdn_url"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
	TargetBPM       float64 `json:"target_bpm,omitempty"`
}

// ErrorData is the payload of an upstream error message.
type ErrorData struct {
	Message string `json:"error"`
}

// Message is one decoded frame from a progress stream.
type Message struct {
	Type      string
	SessionID string
	Progress  *ProgressData
	Complete  *CompleteData
	Err       *ErrorData
}

// frame matches the backend's wire envelope.
type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// decodeFrame parses one wire frame into a Message. Returns an error for
// malformed JSON; unknown message types pass through with only Type set so
// the caller can ignore them.
func decodeFrame(raw []byte) (Message, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Message{}, fmt.Errorf("malformed frame: %w", err)
	}

	msg := Message{Type: f.Type, SessionID: f.SessionID}

	switch f.Type {
	case TypeProgress:
		var data ProgressData
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &data); err != nil {
				return Message{}, fmt.Errorf("malformed progress data: %w", err)
			}
		}
		msg.Progress = &data
	case TypeComplete:
		var data CompleteData
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &data); err != nil {
				return Message{}, fmt.Errorf("malformed complete data: %w", err)
			}
		}
		msg.Complete = &data
	case TypeError:
		var data ErrorData
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &data); err != nil {
				return Message{}, fmt.Errorf("malformed error data: %w", err)
			}
		}
		msg.Err = &data
	}

	return msg, nil
}

// Transport is one open progress stream for a session.
//
// Messages are delivered in arrival order on the returned channel. The
// channel closes when the stream ends; Err reports why. After Close, no
// further messages are delivered.
type Transport interface {
	// Messages returns the stream of decoded messages. Closed when the
	// stream ends for any reason.
	Messages() <-chan Message

	// Err returns the terminal stream error, if any. Valid only after
	// Messages is closed. A nil error means the backend closed the stream
	// normally (it does so after complete/error messages).
	Err() error

	// Close tears the stream down. Idempotent. Pending callbacks stop
	// immediately; a closed transport never delivers another message.
	Close() error
}

// Dialer opens a Transport for a session identifier.
type Dialer interface {
	Dial(ctx context.Context, sessionID string) (Transport, error)
	Name() string
}
