package effort

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *Store) AddNote(ctx context.Context, effortID, body string) (*Note, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("note body is empty")
	}
	id := uuid.NewString()
	now, nowS := s.stamp()
	if _, err := s.q.ExecContext(ctx, `INSERT INTO notes(id, effort_id, body, created_at) VALUES(?, ?, ?, ?);`, id, effortID, body, nowS); err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return &Note{ID: id, EffortID: effortID, Body: body, CreatedAt: now}, nil
}

// Notes returns an effort's notes, oldest first.
func (s *Store) Notes(ctx context.Context, effortID string) ([]*Note, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, effort_id, body, created_at FROM notes WHERE effort_id = ? ORDER BY created_at ASC, rowid ASC;`, effortID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	out := []*Note{}
	for rows.Next() {
		var (
			n        Note
			createdS string
		)
		if err := rows.Scan(&n.ID, &n.EffortID, &n.Body, &createdS); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = parseTime(createdS)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

// JournalDir is the workspace-relative directory holding an effort's files.
func JournalDir(effortID string) string { return "efforts/" + effortID }

// JournalPath is the workspace-relative path of an effort's journal.
func JournalPath(effortID string) string { return JournalDir(effortID) + "/journal.md" }
