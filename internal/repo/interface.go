package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/tasklist-api/internal/model"
)

// TaskRepository stores tasks. It does not check ownership; callers pass already-authorized ids.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id uuid.UUID) (model.Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id uuid.UUID) (model.Task, error)
}

// UserRepository maps identity-provider users to internal records.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
}
