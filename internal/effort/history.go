package effort

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// AppendHistory records one accepted transition.
func (s *Store) AppendHistory(ctx context.Context, effortID, phaseLabel string, proof *string) (*HistoryEntry, error) {
	id := uuid.NewString()
	now, nowS := s.stamp()
	_, err := s.q.ExecContext(ctx, `
INSERT INTO phase_history(id, effort_id, phase_label, proof, created_at)
VALUES(?, ?, ?, ?, ?);
`, id, effortID, phaseLabel, proof, nowS)
	if err != nil {
		return nil, fmt.Errorf("insert phase history: %w", err)
	}
	return &HistoryEntry{ID: id, EffortID: effortID, PhaseLabel: phaseLabel, Proof: proof, CreatedAt: now}, nil
}

// History returns an effort's transitions, oldest first.
func (s *Store) History(ctx context.Context, effortID string) ([]*HistoryEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT id, effort_id, phase_label, proof, created_at
FROM phase_history
WHERE effort_id = ?
ORDER BY created_at ASC, rowid ASC;
`, effortID)
	if err != nil {
		return nil, fmt.Errorf("query phase history: %w", err)
	}
	defer rows.Close()

	out := []*HistoryEntry{}
	for rows.Next() {
		var (
			h        HistoryEntry
			proof    sql.NullString
			createdS string
		)
		if err := rows.Scan(&h.ID, &h.EffortID, &h.PhaseLabel, &proof, &createdS); err != nil {
			return nil, fmt.Errorf("scan phase history: %w", err)
		}
		h.Proof = nullString(proof)
		h.CreatedAt = parseTime(createdS)
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phase history: %w", err)
	}
	return out, nil
}
