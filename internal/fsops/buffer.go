package fsops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrBufferClosed is returned by Enqueue once the buffer was flushed or discarded.
var ErrBufferClosed = errors.New("fs buffer already flushed or discarded")

// Buffer collects filesystem ops for one call. Exactly one of Flush or
// Discard ends its life; after that Enqueue fails.
type Buffer struct {
	mu     sync.Mutex
	ops    []Op
	closed bool
}

// NewBuffer returns an empty, open buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Enqueue validates op and appends it to the queue.
func (b *Buffer) Enqueue(op Op) error {
	if err := op.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBufferClosed
	}
	b.ops = append(b.ops, op)
	return nil
}

// Ops returns a copy of the queued ops in queue order.
func (b *Buffer) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// Len returns the number of queued ops.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

// Discard drops every queued op unapplied and closes the buffer.
func (b *Buffer) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.ops)
	b.ops = nil
	b.closed = true
	return n
}

// FlushReport summarizes a flush.
type FlushReport struct {
	Applied int
	Failed  int
}

// Flush applies queued ops in order through exec. A failing op is logged and
// skipped; the remaining ops still run. Flush never returns an error because
// the caller's outcome is already fixed when it runs.
func (b *Buffer) Flush(ctx context.Context, exec Executor, logger *slog.Logger) FlushReport {
	b.mu.Lock()
	ops := b.ops
	b.ops = nil
	b.closed = true
	b.mu.Unlock()

	var report FlushReport
	for i, op := range ops {
		if err := applyOne(ctx, exec, op); err != nil {
			report.Failed++
			if logger != nil {
				logger.Error("fs op failed after commit", "index", i, "op", string(op.Kind), "path", op.Path, "error", err)
			}
			continue
		}
		report.Applied++
	}
	return report
}

func applyOne(ctx context.Context, exec Executor, op Op) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fs executor panic: %v", r)
		}
	}()
	return exec.Execute(ctx, op)
}
