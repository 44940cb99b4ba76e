package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Namespace exposes every command under one prefix as a direct call.
// Calls go straight to the handler: no Dispatcher, no middleware, no new
// transaction.
type Namespace struct {
	prefix string
	table  map[string]*entry
}

// BuildNamespace builds the call table for prefix from reg.
func BuildNamespace(prefix string, reg *Registry) *Namespace {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return buildNamespaceLocked(prefix, reg.commands)
}

func buildNamespaceLocked(prefix string, commands map[string]*entry) *Namespace {
	ns := &Namespace{prefix: prefix, table: make(map[string]*entry)}
	for name, e := range commands {
		if rest, ok := strings.CutPrefix(name, prefix+"."); ok {
			ns.table[rest] = e
		}
	}
	return ns
}

// Prefix returns the namespace prefix.
func (n *Namespace) Prefix() string {
	if n == nil {
		return ""
	}
	return n.prefix
}

// Paths lists the callable paths, sorted.
func (n *Namespace) Paths() []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.table))
	for p := range n.table {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Has reports whether path is callable.
func (n *Namespace) Has(path string) bool {
	if n == nil {
		return false
	}
	_, ok := n.table[path]
	return ok
}

// Sub returns the nested namespace for one more path segment.
func (n *Namespace) Sub(segment string) *Namespace {
	if n == nil {
		return nil
	}
	sub := &Namespace{prefix: n.prefix + "." + segment, table: make(map[string]*entry)}
	for path, e := range n.table {
		if rest, ok := strings.CutPrefix(path, segment+"."); ok {
			sub.table[rest] = e
		}
	}
	return sub
}

// Call invokes the command at path with args. Typed args go to the handler
// as-is; raw JSON (json.RawMessage or []byte) runs through the command's
// validator first.
func (n *Namespace) Call(ctx context.Context, call *Call, path string, args any) Result {
	if n == nil {
		return Fatalf("namespace call to %q on a missing namespace", path)
	}
	e, ok := n.table[path]
	if !ok {
		return Fatalf("namespace %q has no command %q", n.prefix, path)
	}

	switch raw := args.(type) {
	case json.RawMessage:
		return n.callRaw(ctx, call, e, raw)
	case []byte:
		return n.callRaw(ctx, call, e, raw)
	}
	return e.handle(ctx, call, args)
}

func (n *Namespace) callRaw(ctx context.Context, call *Call, e *entry, raw json.RawMessage) Result {
	typed, fe := e.validate(raw)
	if len(fe) > 0 {
		return Reject(CodeValidation, fmt.Sprintf("invalid arguments for %s", e.name), fe)
	}
	return e.handle(ctx, call, typed)
}
