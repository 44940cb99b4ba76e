package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	beginInitialInterval = 25 * time.Millisecond
	beginMaxElapsed      = 3 * time.Second
)

// BeginTx starts a transaction, retrying while another writer holds the
// database lock. Any other error is returned immediately.
func BeginTx(ctx context.Context, db TxBeginner) (*sql.Tx, error) {
	var tx *sql.Tx
	op := func() error {
		t, err := db.BeginTx(ctx, nil)
		if err != nil {
			if IsBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		tx = t
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = beginInitialInterval
	b.MaxElapsedTime = beginMaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// IsBusy reports whether err is SQLITE_BUSY / SQLITE_LOCKED.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
