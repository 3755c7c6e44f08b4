package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/tasklist-api/internal/model"
)

const taskColumns = `id, user_id, title, description, priority, deadline, status, created_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = model.StatusTodo
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, user_id, title, description, priority, deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+taskColumns,
		t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Deadline, t.Status,
	)
	created, err := scanTask(row)
	return created, mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id uuid.UUID) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
	`, id)
	t, err := scanTask(row)
	return t, mapError(err)
}

func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update overwrites only the non-nil fields of patch. id, user_id and created_at are never written.
func (r *TaskRepo) Update(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title       = COALESCE($2, title),
		    description = COALESCE($3, description),
		    priority    = COALESCE($4, priority),
		    deadline    = COALESCE($5, deadline),
		    status      = COALESCE($6, status)
		WHERE id = $1
		RETURNING `+taskColumns,
		id, patch.Title, patch.Description, patch.Priority, patch.Deadline, patch.Status,
	)
	t, err := scanTask(row)
	return t, mapError(err)
}

// Delete removes the task and returns the row as it was before removal.
func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM tasks
		WHERE id = $1
		RETURNING `+taskColumns,
		id,
	)
	t, err := scanTask(row)
	return t, mapError(err)
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Deadline, &t.Status, &t.CreatedAt,
	)
	return t, err
}
