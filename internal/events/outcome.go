package events

import (
	"context"
	"time"

	"github.com/mattjoyce/waypoint/internal/rpc"
)

// Event types.
const (
	TypeRPCOK       = "rpc.ok"
	TypeRPCRejected = "rpc.rejected"
	TypeRPCFailed   = "rpc.failed"
)

// Outcome is the payload of an rpc.* event.
type Outcome struct {
	Cmd        string `json:"cmd"`
	RequestID  string `json:"request_id"`
	Actor      string `json:"actor,omitempty"`
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// OutcomeMiddleware publishes every call's outcome to hub. Register it
// first so it observes the final result; a panic passes through unpublished
// and surfaces at the Dispatcher.
func OutcomeMiddleware(hub *Hub) rpc.Middleware {
	return func(ctx context.Context, call *rpc.Call, req rpc.Request, next rpc.Next) rpc.Result {
		start := time.Now()
		res := next(ctx)

		out := Outcome{
			Cmd:        req.Cmd,
			RequestID:  call.RequestID,
			Actor:      call.Actor,
			OK:         res.OK(),
			Code:       res.Code(),
			DurationMS: time.Since(start).Milliseconds(),
		}
		typ := TypeRPCOK
		switch {
		case res.Fatal():
			typ = TypeRPCFailed
			out.Message = res.Err.Message
		case res.Rejected():
			typ = TypeRPCRejected
			out.Message = res.Err.Message
		}
		hub.Publish(typ, out)
		return res
	}
}
