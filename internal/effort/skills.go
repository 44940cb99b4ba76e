package effort

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattjoyce/waypoint/internal/phase"
)

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// PutSkill inserts or replaces a skill record.
func (s *Store) PutSkill(ctx context.Context, sk Skill) (*Skill, error) {
	sk.Name = strings.TrimSpace(sk.Name)
	if sk.Name == "" {
		return nil, fmt.Errorf("skill name is empty")
	}
	if err := sk.Phases.Validate(); err != nil {
		return nil, fmt.Errorf("skill %q: %w", sk.Name, err)
	}
	if sk.Source == "" {
		sk.Source = SourceAPI
	}
	phases, err := sk.Phases.Encode()
	if err != nil {
		return nil, err
	}
	now, nowS := s.stamp()

	var digest any
	if sk.Digest != "" {
		digest = sk.Digest
	}
	_, err = s.q.ExecContext(ctx, `
INSERT INTO skills(name, description, phases, source, digest, updated_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  description = excluded.description,
  phases      = excluded.phases,
  source      = excluded.source,
  digest      = excluded.digest,
  updated_at  = excluded.updated_at;
`, sk.Name, sk.Description, string(phases), sk.Source, digest, nowS)
	if err != nil {
		return nil, fmt.Errorf("upsert skill %q: %w", sk.Name, err)
	}
	if sk.Phases == nil {
		sk.Phases = phase.List{}
	}
	sk.UpdatedAt = now
	return &sk, nil
}

func (s *Store) GetSkill(ctx context.Context, name string) (*Skill, error) {
	row := s.q.QueryRowContext(ctx, `SELECT name, description, phases, source, digest, updated_at FROM skills WHERE name = ?;`, name)
	sk, err := scanSkill(row)
	if err != nil {
		return nil, notFound(err, "skill", name)
	}
	return sk, nil
}

func (s *Store) ListSkills(ctx context.Context) ([]*Skill, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT name, description, phases, source, digest, updated_at FROM skills ORDER BY name ASC;`)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	out := []*Skill{}
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		out = append(out, sk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}
	return out, nil
}

// SetSkillPhases replaces only the phase list, keeping source and digest.
func (s *Store) SetSkillPhases(ctx context.Context, name string, list phase.List) error {
	phases, err := list.Encode()
	if err != nil {
		return err
	}
	_, nowS := s.stamp()
	res, err := s.q.ExecContext(ctx, `UPDATE skills SET phases = ?, updated_at = ? WHERE name = ?;`, string(phases), nowS, name)
	if err != nil {
		return fmt.Errorf("update skill %q phases: %w", name, err)
	}
	return expectOne(res, "skill", name)
}

func scanSkill(row rowScanner) (*Skill, error) {
	var (
		sk       Skill
		phasesS  string
		digest   sql.NullString
		updatedS string
	)
	if err := row.Scan(&sk.Name, &sk.Description, &phasesS, &sk.Source, &digest, &updatedS); err != nil {
		return nil, err
	}
	list, err := phase.DecodeList([]byte(phasesS))
	if err != nil {
		return nil, fmt.Errorf("skill %q: %w", sk.Name, err)
	}
	sk.Phases = list
	if digest.Valid {
		sk.Digest = digest.String
	}
	sk.UpdatedAt = parseTime(updatedS)
	return &sk, nil
}
