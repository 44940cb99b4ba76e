package fsops

import (
	"context"
	"fmt"
	"strings"
)

// Kind names a deferred filesystem mutation.
type Kind string

const (
	KindWrite  Kind = "write"
	KindAppend Kind = "append"
	KindMkdir  Kind = "mkdir"
	KindUnlink Kind = "unlink"
)

func (k Kind) valid() bool {
	switch k {
	case KindWrite, KindAppend, KindMkdir, KindUnlink:
		return true
	}
	return false
}

// Op is one pending filesystem mutation.
type Op struct {
	Kind    Kind
	Path    string
	Content []byte
}

func Write(path string, content []byte) Op  { return Op{Kind: KindWrite, Path: path, Content: content} }
func Append(path string, content []byte) Op { return Op{Kind: KindAppend, Path: path, Content: content} }
func Mkdir(path string) Op                  { return Op{Kind: KindMkdir, Path: path} }
func Unlink(path string) Op                 { return Op{Kind: KindUnlink, Path: path} }

func (o Op) String() string {
	return fmt.Sprintf("%s %s", o.Kind, o.Path)
}

// Validate checks the op's shape. It does not touch the filesystem.
func (o Op) Validate() error {
	if !o.Kind.valid() {
		return fmt.Errorf("unknown fs op kind %q", o.Kind)
	}
	if strings.TrimSpace(o.Path) == "" {
		return fmt.Errorf("fs op %s: path is empty", o.Kind)
	}
	return nil
}

//go:generate mockgen -destination=mocks/mock_executor.go -package=mocks github.com/mattjoyce/waypoint/internal/fsops Executor

// Executor applies a single op to the real filesystem.
type Executor interface {
	Execute(ctx context.Context, op Op) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, op Op) error

func (f ExecutorFunc) Execute(ctx context.Context, op Op) error { return f(ctx, op) }
