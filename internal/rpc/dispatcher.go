package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/waypoint/internal/storage"
)

// Dispatcher is the single textual entry point for commands.
type Dispatcher struct {
	reg    *Registry
	db     storage.DB
	logger *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher over reg and db.
func NewDispatcher(reg *Registry, db storage.DB, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{reg: reg, db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the dispatcher's registry.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Dispatch looks up, validates and runs req. It never panics: a panic in a
// middleware or handler becomes a HANDLER_ERROR result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	logger := d.logger.With("cmd", req.Cmd, "request_id", req.RequestID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic", "panic", r, "stack", string(debug.Stack()))
			res = Result{Err: &Error{Kind: KindFatal, Code: CodeHandlerError, Message: fmt.Sprint(r)}}
		}
		attrs := []any{"ok", res.OK(), "duration_ms", time.Since(start).Milliseconds()}
		if !res.OK() {
			attrs = append(attrs, "code", res.Code())
		}
		switch {
		case res.Fatal():
			logger.Error("rpc failed", append(attrs, "error", res.Err.Error())...)
		default:
			logger.Debug("rpc done", attrs...)
		}
	}()

	e, ok := d.reg.lookup(req.Cmd)
	if !ok {
		return Reject(CodeUnknownCommand, fmt.Sprintf("unknown command %q", req.Cmd), nil)
	}

	args, fe := e.validate(req.Args)
	if len(fe) > 0 {
		return Reject(CodeValidation, fmt.Sprintf("invalid arguments for %s", req.Cmd), fe)
	}

	call := &Call{
		RequestID:  req.RequestID,
		Actor:      req.Actor,
		Logger:     logger,
		db:         d.db,
		namespaces: d.reg.Namespaces(),
	}
	return RunChain(ctx, call, req, d.reg.Middlewares(), func(ctx context.Context) Result {
		return e.handle(ctx, call, args)
	})
}

// NewCall builds a Call outside the Dispatcher, for composing handlers from
// host code and tests. The returned Call has no transaction or fs buffer.
func (d *Dispatcher) NewCall() *Call {
	return &Call{
		RequestID:  uuid.NewString(),
		Logger:     d.logger,
		db:         d.db,
		namespaces: d.reg.Namespaces(),
	}
}
