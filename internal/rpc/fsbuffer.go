package rpc

import (
	"context"

	"github.com/mattjoyce/waypoint/internal/fsops"
)

// FSBufferMiddleware installs a call-scoped fs buffer, then flushes it
// through exec only when the inner chain returns OK. Any other outcome,
// including a panic, discards it. Flush failures are logged and never
// change the result.
func FSBufferMiddleware(exec fsops.Executor) Middleware {
	return func(ctx context.Context, call *Call, req Request, next Next) Result {
		buf := fsops.NewBuffer()
		prev := call.fs
		call.fs = buf

		flushed := false
		defer func() {
			call.fs = prev
			if !flushed {
				if n := buf.Discard(); n > 0 {
					call.Log().Debug("discarded pending fs ops", "cmd", req.Cmd, "count", n)
				}
			}
		}()

		res := next(ctx)
		if !res.OK() {
			return res
		}

		flushed = true
		report := buf.Flush(context.WithoutCancel(ctx), exec, call.Log())
		if report.Failed > 0 {
			call.Log().Warn("fs flush incomplete", "cmd", req.Cmd, "applied", report.Applied, "failed", report.Failed)
		}
		return res
	}
}

// Standard returns the production layering: fs buffering outside the
// transaction, so files are written only after commit.
func Standard(exec fsops.Executor) []Middleware {
	return []Middleware{FSBufferMiddleware(exec), TxMiddleware()}
}
