package rpc

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/waypoint/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "rpc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countTasks(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM tasks`).Scan(&n))
	return n
}

func insertTask(ctx context.Context, call *Call, id string) error {
	_, err := call.Store().ExecContext(ctx,
		`INSERT INTO tasks(id, title, created_at) VALUES(?, ?, ?)`,
		id, "t-"+id, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

type taskArgs struct {
	ID string `json:"id"`
}

func (a *taskArgs) Check() FieldErrors {
	fe := FieldErrors{}
	fe.Required("id", a.ID)
	return fe.Err()
}
