package effort

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const sessionColumns = `id, effort_id, heartbeat_count, opened_at, closed_at`

// OpenSession returns the effort's open session, opening one if none exists.
// created reports whether a new row was written.
func (s *Store) OpenSession(ctx context.Context, effortID string) (sess *Session, created bool, err error) {
	existing, err := s.OpenSessionFor(ctx, effortID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	id := uuid.NewString()
	now, nowS := s.stamp()
	if _, err := s.q.ExecContext(ctx, `INSERT INTO sessions(id, effort_id, heartbeat_count, opened_at) VALUES(?, ?, 0, ?);`, id, effortID, nowS); err != nil {
		return nil, false, fmt.Errorf("insert session: %w", err)
	}
	return &Session{ID: id, EffortID: effortID, OpenedAt: now}, true, nil
}

// OpenSessionFor returns the effort's open session, or nil.
func (s *Store) OpenSessionFor(ctx context.Context, effortID string) (*Session, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE effort_id = ? AND closed_at IS NULL;`, effortID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load open session for effort %q: %w", effortID, err)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?;`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	return sess, nil
}

// Heartbeat increments an open session's counter.
func (s *Store) Heartbeat(ctx context.Context, id string) (*Session, error) {
	res, err := s.q.ExecContext(ctx, `UPDATE sessions SET heartbeat_count = heartbeat_count + 1 WHERE id = ? AND closed_at IS NULL;`, id)
	if err != nil {
		return nil, fmt.Errorf("heartbeat session %q: %w", id, err)
	}
	if err := expectOne(res, "open session", id); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

// ResetHeartbeat zeroes the effort's open session counter. It returns nil
// when no session is open.
func (s *Store) ResetHeartbeat(ctx context.Context, effortID string) (*Session, error) {
	sess, err := s.OpenSessionFor(ctx, effortID)
	if err != nil || sess == nil {
		return nil, err
	}
	if _, err := s.q.ExecContext(ctx, `UPDATE sessions SET heartbeat_count = 0 WHERE id = ?;`, sess.ID); err != nil {
		return nil, fmt.Errorf("reset session %q: %w", sess.ID, err)
	}
	sess.HeartbeatCount = 0
	return sess, nil
}

// CloseSession closes the effort's open session. It returns nil when none
// is open.
func (s *Store) CloseSession(ctx context.Context, effortID string) (*Session, error) {
	sess, err := s.OpenSessionFor(ctx, effortID)
	if err != nil || sess == nil {
		return nil, err
	}
	now, nowS := s.stamp()
	if _, err := s.q.ExecContext(ctx, `UPDATE sessions SET closed_at = ? WHERE id = ?;`, nowS, sess.ID); err != nil {
		return nil, fmt.Errorf("close session %q: %w", sess.ID, err)
	}
	sess.ClosedAt = &now
	return sess, nil
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess    Session
		openedS string
		closedS sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.EffortID, &sess.HeartbeatCount, &openedS, &closedS); err != nil {
		return nil, err
	}
	sess.OpenedAt = parseTime(openedS)
	sess.ClosedAt = parseNullTime(closedS)
	return &sess, nil
}
