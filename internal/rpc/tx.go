package rpc

import (
	"context"
	"fmt"

	"github.com/mattjoyce/waypoint/internal/storage"
)

// TxMiddleware runs the inner chain inside one store transaction.
//
// A Fatal result or a panic rolls back; any other result commits. The inner
// chain runs on a context that cannot be cancelled, so a started
// transaction always finishes.
func TxMiddleware() Middleware {
	return func(ctx context.Context, call *Call, req Request, next Next) (res Result) {
		if call.tx != nil {
			return Fatalf("%s: nested transaction", req.Cmd)
		}
		if call.db == nil {
			return Fatalf("%s: no store configured", req.Cmd)
		}

		ctx = context.WithoutCancel(ctx)
		tx, err := storage.BeginTx(ctx, call.db)
		if err != nil {
			return Fatal(err)
		}
		call.tx = tx

		done := false
		defer func() {
			call.tx = nil
			if done {
				return
			}
			if rbErr := tx.Rollback(); rbErr != nil {
				call.Log().Error("rollback after panic failed", "cmd", req.Cmd, "error", rbErr)
			}
		}()

		res = next(ctx)
		done = true

		if res.Fatal() {
			if rbErr := tx.Rollback(); rbErr != nil {
				call.Log().Error("rollback failed", "cmd", req.Cmd, "error", rbErr)
			}
			return res
		}
		if err := tx.Commit(); err != nil {
			call.Log().Error("commit failed", "cmd", req.Cmd, "error", err)
			return Fatal(fmt.Errorf("commit: %w", err))
		}
		return res
	}
}
