package wire

import (
	"encoding/json"
	"time"
)

// Frame is one inbound message: an event name plus its raw payload, decoded
// per-event after validation.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is one outbound message.
type Envelope struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload is sent on the "error" event to the originating connection
// only.
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
