package sqlite

import (
	"context"
	"database/sql"

	"github.com/taskforge/taskforge/internal/domain"
)

type tasksRepo struct {
	q dbtx
}

const taskColumns = `id, title, description, due_date, is_done, owner, created_at, updated_at`

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var (
		t    domain.Task
		desc sql.NullString
		due  sql.NullString
	)
	err := scan(&t.ID, &t.Title, &desc, &due, &t.IsDone, &t.Owner, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, mapNotFound(err)
	}

	t.Description = mapNullString(desc)
	t.DueDate = mapNullString(due)
	return t, nil
}

func (r *tasksRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner = ?
		ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *tasksRepo) GetByID(ctx context.Context, ownerID, taskID int64) (domain.Task, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ? AND owner = ?`,
		taskID, ownerID,
	)
	return scanTaskRow(row.Scan)
}

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, due_date, is_done, owner)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+taskColumns,
		t.Title,
		mapOptionalString(t.Description),
		mapOptionalString(t.DueDate),
		t.IsDone,
		t.Owner,
	)
	return scanTaskRow(row.Scan)
}

func (r *tasksRepo) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	row := r.q.QueryRowContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner = ?
		RETURNING `+taskColumns,
		t.Title,
		mapOptionalString(t.Description),
		mapOptionalString(t.DueDate),
		t.ID,
		t.Owner,
	)
	return scanTaskRow(row.Scan)
}

func (r *tasksRepo) SetTaskDone(ctx context.Context, ownerID, taskID int64, done bool) error {
	return requireRow(r.q.ExecContext(ctx, `
		UPDATE tasks
		SET is_done = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner = ?`,
		done, taskID, ownerID,
	))
}

func (r *tasksRepo) DeleteTask(ctx context.Context, ownerID, taskID int64) error {
	return requireRow(r.q.ExecContext(ctx, `
		DELETE FROM tasks
		WHERE id = ? AND owner = ?`,
		taskID, ownerID,
	))
}
