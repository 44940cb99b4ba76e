package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Querier is the row read/write surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner starts transactions. *sql.DB satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DB is a Querier that can also begin transactions.
type DB interface {
	Querier
	TxBeginner
}

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures required tables exist.
//
// The pool is capped at one connection and transactions begin IMMEDIATE, so
// the store itself serializes writers.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := checkLocalFilesystem(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// BootstrapSQLite creates tables/indexes if missing.
func BootstrapSQLite(ctx context.Context, db Querier) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
  id         TEXT PRIMARY KEY,
  title      TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS skills (
  name        TEXT PRIMARY KEY,
  description TEXT NOT NULL DEFAULT '',
  phases      JSON NOT NULL DEFAULT '[]',
  source      TEXT NOT NULL DEFAULT 'api',
  digest      TEXT,
  updated_at  TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS efforts (
  id            TEXT PRIMARY KEY,
  task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
  skill         TEXT NOT NULL,
  ordinal       INTEGER NOT NULL,
  lifecycle     TEXT NOT NULL DEFAULT 'active' CHECK (lifecycle IN ('active', 'finished')),
  current_phase TEXT,
  metadata      JSON NOT NULL DEFAULT '{}',
  created_at    TEXT NOT NULL,
  finished_at   TEXT,
  UNIQUE (task_id, ordinal)
);`,
		`CREATE TABLE IF NOT EXISTS phase_history (
  id          TEXT PRIMARY KEY,
  effort_id   TEXT NOT NULL REFERENCES efforts(id) ON DELETE CASCADE,
  phase_label TEXT NOT NULL,
  proof       TEXT,
  created_at  TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS sessions (
  id              TEXT PRIMARY KEY,
  effort_id       TEXT NOT NULL REFERENCES efforts(id) ON DELETE CASCADE,
  heartbeat_count INTEGER NOT NULL DEFAULT 0,
  opened_at       TEXT NOT NULL,
  closed_at       TEXT
);`,
		`CREATE TABLE IF NOT EXISTS notes (
  id         TEXT PRIMARY KEY,
  effort_id  TEXT NOT NULL REFERENCES efforts(id) ON DELETE CASCADE,
  body       TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS efforts_task_idx ON efforts(task_id, ordinal);`,
		`CREATE INDEX IF NOT EXISTS phase_history_effort_idx ON phase_history(effort_id, created_at);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS sessions_one_open_idx ON sessions(effort_id) WHERE closed_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS notes_effort_idx ON notes(effort_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
