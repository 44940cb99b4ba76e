package effort

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mattjoyce/waypoint/internal/phase"
)

const effortColumns = `id, task_id, skill, ordinal, lifecycle, current_phase, metadata, created_at, finished_at`

// CreateEffort opens a new active effort at the next ordinal for the task.
func (s *Store) CreateEffort(ctx context.Context, taskID, skill string, metadata json.RawMessage) (*Effort, error) {
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}
	if !json.Valid(metadata) {
		return nil, fmt.Errorf("effort metadata is not valid JSON")
	}

	var ordinal int
	if err := s.q.QueryRowContext(ctx, `SELECT COALESCE(MAX(ordinal), 0) + 1 FROM efforts WHERE task_id = ?;`, taskID).Scan(&ordinal); err != nil {
		return nil, fmt.Errorf("next effort ordinal: %w", err)
	}

	id := uuid.NewString()
	now, nowS := s.stamp()
	_, err := s.q.ExecContext(ctx, `
INSERT INTO efforts(id, task_id, skill, ordinal, lifecycle, metadata, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, id, taskID, skill, ordinal, LifecycleActive, string(metadata), nowS)
	if err != nil {
		return nil, fmt.Errorf("insert effort: %w", err)
	}
	return &Effort{
		ID:        id,
		TaskID:    taskID,
		Skill:     skill,
		Ordinal:   ordinal,
		Lifecycle: LifecycleActive,
		Metadata:  metadata,
		CreatedAt: now,
	}, nil
}

func (s *Store) GetEffort(ctx context.Context, id string) (*Effort, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+effortColumns+` FROM efforts WHERE id = ?;`, id)
	e, err := scanEffort(row)
	if err != nil {
		return nil, notFound(err, "effort", id)
	}
	return e, nil
}

// ListEfforts returns a task's efforts in ordinal order.
func (s *Store) ListEfforts(ctx context.Context, taskID string) ([]*Effort, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+effortColumns+` FROM efforts WHERE task_id = ? ORDER BY ordinal ASC;`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query efforts: %w", err)
	}
	defer rows.Close()

	out := []*Effort{}
	for rows.Next() {
		e, err := scanEffort(rows)
		if err != nil {
			return nil, fmt.Errorf("scan effort: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate efforts: %w", err)
	}
	return out, nil
}

func scanEffort(row rowScanner) (*Effort, error) {
	var (
		e         Effort
		lifecycle string
		current   sql.NullString
		metadata  string
		createdS  string
		finishedS sql.NullString
	)
	if err := row.Scan(&e.ID, &e.TaskID, &e.Skill, &e.Ordinal, &lifecycle, &current, &metadata, &createdS, &finishedS); err != nil {
		return nil, err
	}
	e.Lifecycle = Lifecycle(lifecycle)
	e.CurrentPhase = nullString(current)
	e.Metadata = json.RawMessage(metadata)
	e.CreatedAt = parseTime(createdS)
	e.FinishedAt = parseNullTime(finishedS)
	return &e, nil
}

// SetCurrentPhase moves an active effort to phase.
func (s *Store) SetCurrentPhase(ctx context.Context, id, phaseLabel string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE efforts SET current_phase = ? WHERE id = ? AND lifecycle = ?;`, phaseLabel, id, LifecycleActive)
	if err != nil {
		return fmt.Errorf("update effort %q phase: %w", id, err)
	}
	return expectOne(res, "active effort", id)
}

// Finish closes an active effort. It returns ErrFinished when the effort
// already finished.
func (s *Store) Finish(ctx context.Context, id string) (*Effort, error) {
	e, err := s.GetEffort(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Finished() {
		return nil, fmt.Errorf("effort %q: %w", id, ErrFinished)
	}
	now, nowS := s.stamp()
	if _, err := s.q.ExecContext(ctx, `UPDATE efforts SET lifecycle = ?, finished_at = ? WHERE id = ?;`, LifecycleFinished, nowS, id); err != nil {
		return nil, fmt.Errorf("finish effort %q: %w", id, err)
	}
	e.Lifecycle = LifecycleFinished
	e.FinishedAt = &now
	return e, nil
}

// metadataPhasesKey holds a phase list in effort metadata.
const metadataPhasesKey = "phases"

// ResolvePhases finds e's declared list: the skill record first, then the
// effort metadata. A zero ResolvedPhases means enforcement is off.
func (s *Store) ResolvePhases(ctx context.Context, e *Effort) (ResolvedPhases, error) {
	sk, err := s.GetSkill(ctx, e.Skill)
	switch {
	case err == nil && len(sk.Phases) > 0:
		return ResolvedPhases{List: sk.Phases, Source: PhaseSourceSkill}, nil
	case err != nil && !isNotFound(err):
		return ResolvedPhases{}, err
	}

	list, ok, err := metadataPhases(e.Metadata)
	if err != nil {
		return ResolvedPhases{}, fmt.Errorf("effort %q metadata: %w", e.ID, err)
	}
	if ok {
		return ResolvedPhases{List: list, Source: PhaseSourceMetadata}, nil
	}
	return ResolvedPhases{}, nil
}

func metadataPhases(raw json.RawMessage) (phase.List, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, false, err
	}
	v, ok := meta[metadataPhasesKey]
	if !ok || string(v) == "null" {
		return nil, false, nil
	}
	list, err := phase.DecodeList(v)
	if err != nil {
		return nil, false, err
	}
	return list, len(list) > 0, nil
}

// WritePhases persists a modified list back to the source it came from.
func (s *Store) WritePhases(ctx context.Context, e *Effort, src PhaseSource, list phase.List) error {
	switch src {
	case PhaseSourceSkill:
		return s.SetSkillPhases(ctx, e.Skill, list)
	case PhaseSourceMetadata:
		return s.setMetadataPhases(ctx, e, list)
	default:
		return fmt.Errorf("effort %q has no phase list source", e.ID)
	}
}

func (s *Store) setMetadataPhases(ctx context.Context, e *Effort, list phase.List) error {
	meta := map[string]json.RawMessage{}
	if len(e.Metadata) > 0 {
		if err := json.Unmarshal(e.Metadata, &meta); err != nil {
			return fmt.Errorf("decode effort %q metadata: %w", e.ID, err)
		}
	}
	encoded, err := list.Encode()
	if err != nil {
		return err
	}
	meta[metadataPhasesKey] = encoded
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode effort %q metadata: %w", e.ID, err)
	}
	res, err := s.q.ExecContext(ctx, `UPDATE efforts SET metadata = ? WHERE id = ?;`, string(raw), e.ID)
	if err != nil {
		return fmt.Errorf("update effort %q metadata: %w", e.ID, err)
	}
	if err := expectOne(res, "effort", e.ID); err != nil {
		return err
	}
	e.Metadata = raw
	return nil
}
