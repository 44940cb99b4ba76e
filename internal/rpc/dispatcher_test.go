package rpc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/waypoint/internal/fsops"
)

type harness struct {
	db   *sql.DB
	reg  *Registry
	disp *Dispatcher
	root string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := openTestDB(t)
	root := t.TempDir()
	local, err := fsops.NewLocal(root)
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Use(Standard(local)...)
	return &harness{db: db, reg: reg, disp: NewDispatcher(reg, db), root: root}
}

func (h *harness) dispatch(t *testing.T, cmd string, args any) Result {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return h.disp.Dispatch(context.Background(), Request{Cmd: cmd, Args: raw})
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root {
			rel, _ := filepath.Rel(root, path)
			out = append(out, rel)
		}
		return nil
	}))
	return out
}

func TestDispatchUnknownCommandSkipsMiddleware(t *testing.T) {
	reg := NewRegistry()
	ran := false
	reg.Use(func(ctx context.Context, call *Call, req Request, next Next) Result {
		ran = true
		return next(ctx)
	})
	disp := NewDispatcher(reg, nil)

	res := disp.Dispatch(context.Background(), Request{Cmd: "nope.nothing"})
	assert.Equal(t, CodeUnknownCommand, res.Code())
	assert.True(t, res.Rejected())
	assert.False(t, ran)
}

func TestDispatchValidationError(t *testing.T) {
	h := newHarness(t)
	called := false
	MustRegister(h.reg, "task.make", Command[taskArgs]{Handle: func(ctx context.Context, call *Call, a taskArgs) Result {
		called = true
		return OK(nil)
	}})

	res := h.dispatch(t, "task.make", map[string]any{"id": ""})
	require.Equal(t, CodeValidation, res.Code())
	assert.Equal(t, FieldErrors{"id": "required"}, res.Err.Details)

	res = h.dispatch(t, "task.make", map[string]any{"id": 7})
	require.Equal(t, CodeValidation, res.Code())
	assert.Contains(t, res.Err.Details.(FieldErrors), "id")
	assert.False(t, called)
}

func TestDispatchPanicBecomesHandlerError(t *testing.T) {
	h := newHarness(t)
	MustRegister(h.reg, "task.boom", Command[struct{}]{Handle: func(context.Context, *Call, struct{}) Result {
		panic("kaboom")
	}})

	res := h.dispatch(t, "task.boom", nil)
	require.True(t, res.Fatal())
	assert.Equal(t, CodeHandlerError, res.Code())
	assert.Equal(t, "kaboom", res.Err.Message)
}

func TestRejectLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	db := h.db
	MustRegister(h.reg, "task.guarded", Command[taskArgs]{Handle: func(ctx context.Context, call *Call, a taskArgs) Result {
		var n int
		if err := call.Store().QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, a.ID).Scan(&n); err != nil {
			return Fatal(err)
		}
		if n == 0 {
			return NotFound("task %s not found", a.ID)
		}
		return OK(nil)
	}})

	beforeRows, beforeFiles := countTasks(t, db), listFiles(t, h.root)
	res := h.dispatch(t, "task.guarded", taskArgs{ID: "missing"})
	assert.Equal(t, CodeNotFound, res.Code())
	assert.Equal(t, beforeRows, countTasks(t, db))
	assert.Equal(t, beforeFiles, listFiles(t, h.root))
}

func TestRejectDiscardsQueuedFsOps(t *testing.T) {
	h := newHarness(t)
	MustRegister(h.reg, "task.deny", Command[struct{}]{Handle: func(ctx context.Context, call *Call, _ struct{}) Result {
		if err := call.Enqueue(fsops.Write("denied.txt", []byte("x"))); err != nil {
			return Fatal(err)
		}
		return Reject("DENIED", "nope", nil)
	}})

	res := h.dispatch(t, "task.deny", nil)
	assert.Equal(t, "DENIED", res.Code())
	assert.Empty(t, listFiles(t, h.root))
}

func TestPanicAfterQueuedOpsRollsBackAndWritesNothing(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	local, err := fsops.NewLocal(root)
	require.NoError(t, err)
	reg := NewRegistry()
	reg.Use(Standard(local)...)
	disp := NewDispatcher(reg, db)

	MustRegister(reg, "task.explode", Command[taskArgs]{Handle: func(ctx context.Context, call *Call, a taskArgs) Result {
		if err := insertTask(ctx, call, a.ID); err != nil {
			return Fatal(err)
		}
		if err := call.Enqueue(fsops.Write("a.txt", []byte("a"))); err != nil {
			return Fatal(err)
		}
		panic("after writes")
	}})

	res := disp.Dispatch(context.Background(), Request{Cmd: "task.explode", Args: json.RawMessage(`{"id":"t1"}`)})
	assert.Equal(t, CodeHandlerError, res.Code())
	assert.Equal(t, 0, countTasks(t, db))
	assert.Empty(t, listFiles(t, root))
}

func TestFatalResultRollsBack(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()
	reg.Use(TxMiddleware())
	disp := NewDispatcher(reg, db)

	MustRegister(reg, "task.half", Command[taskArgs]{Handle: func(ctx context.Context, call *Call, a taskArgs) Result {
		if err := insertTask(ctx, call, a.ID); err != nil {
			return Fatal(err)
		}
		return Fatal(errors.New("second write failed"))
	}})

	res := disp.Dispatch(context.Background(), Request{Cmd: "task.half", Args: json.RawMessage(`{"id":"t1"}`)})
	assert.True(t, res.Fatal())
	assert.Equal(t, 0, countTasks(t, db))
}

func TestOKCommitsAndFlushesInOrder(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	local, err := fsops.NewLocal(root)
	require.NoError(t, err)
	reg := NewRegistry()
	reg.Use(Standard(local)...)
	disp := NewDispatcher(reg, db)

	MustRegister(reg, "task.write", Command[taskArgs]{Handle: func(ctx context.Context, call *Call, a taskArgs) Result {
		if err := insertTask(ctx, call, a.ID); err != nil {
			return Fatal(err)
		}
		for _, op := range []fsops.Op{
			fsops.Write("out/first.txt", []byte("one")),
			fsops.Write("out/second.txt", []byte("two")),
			fsops.Append("out/first.txt", []byte("+more")),
		} {
			if err := call.Enqueue(op); err != nil {
				return Fatal(err)
			}
		}
		return OK(a.ID)
	}})

	res := disp.Dispatch(context.Background(), Request{Cmd: "task.write", Args: json.RawMessage(`{"id":"t1"}`)})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, 1, countTasks(t, db))

	first, err := os.ReadFile(filepath.Join(root, "out", "first.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one+more", string(first))
	second, err := os.ReadFile(filepath.Join(root, "out", "second.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(second))
}

func TestFlushFailureDoesNotChangeResult(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()
	var applied []string
	exec := fsops.ExecutorFunc(func(ctx context.Context, op fsops.Op) error {
		if op.Path == "bad" {
			return errors.New("disk full")
		}
		applied = append(applied, op.Path)
		return nil
	})
	reg.Use(Standard(exec)...)
	disp := NewDispatcher(reg, db)

	MustRegister(reg, "task.flaky", Command[struct{}]{Handle: func(ctx context.Context, call *Call, _ struct{}) Result {
		_ = call.Enqueue(fsops.Write("bad", nil))
		_ = call.Enqueue(fsops.Write("good", nil))
		return OK("fine")
	}})

	res := disp.Dispatch(context.Background(), Request{Cmd: "task.flaky"})
	require.True(t, res.OK())
	assert.Equal(t, "fine", res.Data)
	assert.Equal(t, []string{"good"}, applied)
}

func TestNamespaceCallSharesTransaction(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()
	reg.Use(TxMiddleware())
	disp := NewDispatcher(reg, db)

	MustRegister(reg, "task.insert", Command[taskArgs]{Handle: func(ctx context.Context, call *Call, a taskArgs) Result {
		if !call.InTx() {
			return Fatalf("expected open transaction")
		}
		if err := insertTask(ctx, call, a.ID); err != nil {
			return Fatal(err)
		}
		return OK(nil)
	}})
	MustRegister(reg, "task.pair", Command[taskArgs]{Handle: func(ctx context.Context, call *Call, a taskArgs) Result {
		if res := call.NS("task").Call(ctx, call, "insert", taskArgs{ID: a.ID + "-1"}); !res.OK() {
			return res
		}
		if res := call.NS("task").Call(ctx, call, "insert", taskArgs{ID: a.ID + "-2"}); !res.OK() {
			return res
		}
		panic("undo both")
	}})

	res := disp.Dispatch(context.Background(), Request{Cmd: "task.pair", Args: json.RawMessage(`{"id":"p"}`)})
	assert.True(t, res.Fatal())
	assert.Equal(t, 0, countTasks(t, db))
}

func TestNestedTransactionIsFatal(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()
	reg.Use(TxMiddleware(), TxMiddleware())
	disp := NewDispatcher(reg, db)
	MustRegister(reg, "task.noop", Command[struct{}]{Handle: noop})

	res := disp.Dispatch(context.Background(), Request{Cmd: "task.noop"})
	assert.True(t, res.Fatal())
}

func TestEnqueueWithoutBuffer(t *testing.T) {
	call := &Call{}
	assert.Error(t, call.Enqueue(fsops.Mkdir("x")))
	assert.Nil(t, call.FS())
}

func TestCancelledContextStillCommits(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()
	reg.Use(TxMiddleware())
	disp := NewDispatcher(reg, db)

	ctx, cancel := context.WithCancel(context.Background())
	MustRegister(reg, "task.slow", Command[taskArgs]{Handle: func(ctx context.Context, call *Call, a taskArgs) Result {
		cancel()
		if err := insertTask(ctx, call, a.ID); err != nil {
			return Fatal(err)
		}
		return OK(nil)
	}})

	res := disp.Dispatch(ctx, Request{Cmd: "task.slow", Args: json.RawMessage(`{"id":"c1"}`)})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, 1, countTasks(t, db))
}
