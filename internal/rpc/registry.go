package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrDuplicateCommand is returned when a command name is registered twice.
var ErrDuplicateCommand = errors.New("command already registered")

var commandNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// Access is a coarse permission hint: read-only commands never mutate state.
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

// Handler executes a command with validated args.
type Handler[A any] func(ctx context.Context, call *Call, args A) Result

// Command is the registration record for one command.
// A nil Validate decodes args with DecodeArgs.
type Command[A any] struct {
	Access   Access
	Validate Validator[A]
	Handle   Handler[A]
}

// entry is the type-erased form of a Command stored in the registry.
type entry struct {
	name     string
	access   Access
	validate func(raw json.RawMessage) (any, FieldErrors)
	handle   func(ctx context.Context, call *Call, args any) Result
}

// Registry maps command names to handlers and owns the middleware list.
// It is created once by the host and passed to the Dispatcher.
type Registry struct {
	mu          sync.RWMutex
	commands    map[string]*entry
	middlewares []Middleware
	namespaces  map[string]*Namespace
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*entry),
	}
}

// Register adds a command under name.
func Register[A any](r *Registry, name string, cmd Command[A]) error {
	if !commandNamePattern.MatchString(name) {
		return fmt.Errorf("invalid command name %q (want dot-segmented lowercase, e.g. effort.transition)", name)
	}
	if cmd.Handle == nil {
		return fmt.Errorf("command %q has no handler", name)
	}
	validate := cmd.Validate
	if validate == nil {
		validate = DecodeArgs[A]
	}
	access := cmd.Access
	if access == "" {
		access = AccessWrite
	}

	e := &entry{
		name:   name,
		access: access,
		validate: func(raw json.RawMessage) (any, FieldErrors) {
			args, fe := validate(raw)
			if len(fe) > 0 {
				return nil, fe
			}
			return args, nil
		},
		handle: func(ctx context.Context, call *Call, args any) Result {
			typed, ok := args.(A)
			if !ok {
				var want A
				return Fatalf("command %q: args of type %T, want %T", name, args, want)
			}
			return cmd.Handle(ctx, call, typed)
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, name)
	}
	r.commands[name] = e
	r.namespaces = nil
	return nil
}

// MustRegister is Register for startup wiring; a duplicate or invalid name
// is a programmer error and panics.
func MustRegister[A any](r *Registry, name string, cmd Command[A]) {
	if err := Register(r, name, cmd); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.commands[name]
	return e, ok
}

// Lookup reports whether name is registered and its access kind.
func (r *Registry) Lookup(name string) (Access, bool) {
	e, ok := r.lookup(name)
	if !ok {
		return "", false
	}
	return e.access, true
}

// CommandInfo describes one registered command.
type CommandInfo struct {
	Name   string `json:"name"`
	Access Access `json:"access"`
}

// Commands lists registered commands sorted by name.
func (r *Registry) Commands() []CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CommandInfo, 0, len(r.commands))
	for name, e := range r.commands {
		out = append(out, CommandInfo{Name: name, Access: e.access})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Use appends middleware. The first registered middleware is outermost.
func (r *Registry) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw...)
}

// Middlewares returns a snapshot of the middleware list.
func (r *Registry) Middlewares() []Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Middleware, len(r.middlewares))
	copy(out, r.middlewares)
	return out
}

// ClearMiddlewares removes all middleware.
func (r *Registry) ClearMiddlewares() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = nil
}

// Reset drops every command, middleware and namespace.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = make(map[string]*entry)
	r.middlewares = nil
	r.namespaces = nil
}

// Namespaces returns one Namespace per registered prefix. The tables are
// built once after the last registration and shared by every call.
func (r *Registry) Namespaces() map[string]*Namespace {
	r.mu.RLock()
	ns := r.namespaces
	r.mu.RUnlock()
	if ns != nil {
		return ns
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.namespaces != nil {
		return r.namespaces
	}
	built := make(map[string]*Namespace)
	for name := range r.commands {
		prefix, _, _ := strings.Cut(name, ".")
		if _, ok := built[prefix]; !ok {
			built[prefix] = buildNamespaceLocked(prefix, r.commands)
		}
	}
	r.namespaces = built
	return built
}
