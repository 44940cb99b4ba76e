package effort

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *Store) CreateTask(ctx context.Context, title string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("task title is empty")
	}
	id := uuid.NewString()
	now, nowS := s.stamp()
	if _, err := s.q.ExecContext(ctx, `INSERT INTO tasks(id, title, created_at) VALUES(?, ?, ?);`, id, title, nowS); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &Task{ID: id, Title: title, CreatedAt: now}, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var (
		t        Task
		createdS string
	)
	err := s.q.QueryRowContext(ctx, `SELECT id, title, created_at FROM tasks WHERE id = ?;`, id).
		Scan(&t.ID, &t.Title, &createdS)
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	t.CreatedAt = parseTime(createdS)
	return &t, nil
}

// DeleteTask removes a task; its efforts and their rows go with it.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete task %q: %w", id, err)
	}
	return expectOne(res, "task", id)
}
