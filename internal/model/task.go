package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusTodo = "Todo"
	StatusDone = "Done"
)

// Task is the persisted task record. Wire representations live in the handler package.
type Task struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description *string
	Priority    int
	Deadline    *time.Time
	Status      string
	CreatedAt   time.Time
}

// TaskPatch carries the fields of an update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *int
	Deadline    *time.Time
	Status      *string
}

// Empty reports whether the patch would change nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Deadline == nil && p.Status == nil
}
