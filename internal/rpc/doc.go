// Package rpc is the command execution core of the daemon.
//
// A Request names a registered command and carries raw JSON args. The
// Dispatcher looks the command up, validates the args, and runs the handler
// inside the registry's middleware chain. Every outcome comes back as a
// Result; nothing escapes Dispatch unconverted.
//
// Results carry one of two error kinds:
//   - Rejected: an expected business outcome. The handler wrote nothing
//     (guard-before-mutate), so the transaction commits and queued fs ops
//     are discarded.
//   - Fatal: something broke, possibly after a write. The transaction rolls
//     back, queued fs ops are discarded, and the Dispatcher reports
//     HANDLER_ERROR. A handler panic is handled the same way.
//
// The host installs FSBufferMiddleware before TxMiddleware, giving
// fsBuffer(tx(handler)): file mutations become visible only after the
// transaction committed.
//
// Handlers compose other handlers through a Namespace (Call.NS). Namespace
// calls skip the Dispatcher and all middleware, so they run inside the
// caller's transaction and share its fs buffer.
package rpc
