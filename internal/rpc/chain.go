package rpc

import (
	"context"
	"encoding/json"
)

// Request is a decoded command invocation.
type Request struct {
	Cmd       string          `json:"cmd"`
	Args      json.RawMessage `json:"args,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Actor     string          `json:"-"`
}

// Next runs the remainder of the chain.
type Next func(ctx context.Context) Result

// Middleware wraps the inner chain. It either calls next, optionally
// transforming the Result, or returns its own Result without calling it.
type Middleware func(ctx context.Context, call *Call, req Request, next Next) Result

// RunChain composes mws around terminal, first middleware outermost.
// Panics pass through unchanged.
func RunChain(ctx context.Context, call *Call, req Request, mws []Middleware, terminal Next) Result {
	if len(mws) == 0 {
		return terminal(ctx)
	}
	next := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func(ctx context.Context) Result {
			return mw(ctx, call, req, inner)
		}
	}
	return next(ctx)
}
