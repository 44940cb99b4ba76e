package rpc

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/mattjoyce/waypoint/internal/fsops"
	"github.com/mattjoyce/waypoint/internal/storage"
)

// errNoBuffer is returned by Enqueue outside the fs-buffering middleware.
var errNoBuffer = errors.New("no fs buffer installed for this call")

// Call is the per-request context handed to middleware and handlers.
type Call struct {
	RequestID string
	Actor     string
	Logger    *slog.Logger

	db         storage.DB
	tx         *sql.Tx
	namespaces map[string]*Namespace
	fs         *fsops.Buffer
}

// Store returns the open transaction when one exists, else the database.
func (c *Call) Store() storage.Querier {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// DB returns the underlying database handle.
func (c *Call) DB() storage.DB { return c.db }

// InTx reports whether a transaction is open for this call.
func (c *Call) InTx() bool { return c.tx != nil }

// FS returns the call-scoped fs buffer, or nil outside the buffering middleware.
func (c *Call) FS() *fsops.Buffer { return c.fs }

// Enqueue defers op until the call commits.
func (c *Call) Enqueue(op fsops.Op) error {
	if c.fs == nil {
		return errNoBuffer
	}
	return c.fs.Enqueue(op)
}

// NS returns the namespace for prefix, or nil when nothing is registered under it.
func (c *Call) NS(prefix string) *Namespace {
	return c.namespaces[prefix]
}

// Log returns the call logger, falling back to the default logger.
func (c *Call) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
