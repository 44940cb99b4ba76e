package fsops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when an op targets a path outside the executor root.
var ErrOutsideRoot = errors.New("path escapes fs root")

// Local applies ops to local disk. Relative paths resolve against Root;
// absolute paths must already lie under Root.
type Local struct {
	root     string
	fileMode fs.FileMode
	dirMode  fs.FileMode
}

var _ Executor = (*Local)(nil)

// NewLocal creates a filesystem executor rooted at root.
func NewLocal(root string) (*Local, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("fs root is empty")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve fs root %q: %w", root, err)
	}
	return &Local{
		root:     filepath.Clean(abs),
		fileMode: 0o644,
		dirMode:  0o755,
	}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

// Resolve maps an op path to an absolute path under the root.
func (l *Local) Resolve(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", fmt.Errorf("path is empty")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.root, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(l.root, p)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return p, nil
}

// Execute applies op.
func (l *Local) Execute(ctx context.Context, op Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := op.Validate(); err != nil {
		return err
	}
	path, err := l.Resolve(op.Path)
	if err != nil {
		return err
	}

	switch op.Kind {
	case KindWrite:
		if err := os.MkdirAll(filepath.Dir(path), l.dirMode); err != nil {
			return fmt.Errorf("create parent of %q: %w", path, err)
		}
		if err := os.WriteFile(path, op.Content, l.fileMode); err != nil {
			return fmt.Errorf("write %q: %w", path, err)
		}
	case KindAppend:
		if err := os.MkdirAll(filepath.Dir(path), l.dirMode); err != nil {
			return fmt.Errorf("create parent of %q: %w", path, err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, l.fileMode)
		if err != nil {
			return fmt.Errorf("open %q for append: %w", path, err)
		}
		if _, err := f.Write(op.Content); err != nil {
			_ = f.Close()
			return fmt.Errorf("append %q: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %q: %w", path, err)
		}
	case KindMkdir:
		if err := os.MkdirAll(path, l.dirMode); err != nil {
			return fmt.Errorf("mkdir %q: %w", path, err)
		}
	case KindUnlink:
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("unlink %q: %w", path, err)
		}
	}
	return nil
}
