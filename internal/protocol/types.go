// Package protocol is the JSON envelope carried over the wire:
// {"cmd","args"} in, {"ok","data"} or {"ok":false,"error",...} out.
package protocol

import "encoding/json"

// MaxRequestBytes bounds a decoded request envelope.
const MaxRequestBytes = 1 << 20

// Request is the inbound envelope.
type Request struct {
	Cmd       string          `json:"cmd"`
	Args      json.RawMessage `json:"args,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// Response is the outbound envelope.
type Response struct {
	OK      bool            `json:"ok"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"` // error code when ok is false
	Message string          `json:"message,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}
