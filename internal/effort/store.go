// Package effort persists tasks, efforts and everything hanging off them:
// phase history, sessions, notes and the cached skill records.
package effort

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattjoyce/waypoint/internal/storage"
)

// Store reads and writes effort rows through q. Bind it to the call's
// transaction so every write shares one commit.
type Store struct {
	q   storage.Querier
	now func() time.Time
}

func New(q storage.Querier) *Store {
	return &Store{q: q, now: time.Now}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) stamp() (time.Time, string) {
	now := s.now().UTC()
	return now, now.Format(time.RFC3339Nano)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %q: %w", what, id, err)
}

func expectOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %q rows affected: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
	}
	return nil
}
