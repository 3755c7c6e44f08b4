package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/tasklist-api/internal/model"
	"github.com/BuzzLyutic/tasklist-api/internal/repo"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrForbidden    = errors.New("forbidden")
	ErrUserNotFound = errors.New("user not found")
)

const (
	MaxTitleLength       = 500
	MaxDescriptionLength = 500
	MaxStatusLength      = 500
)

// NewTask is the caller-supplied part of a task at creation time.
type NewTask struct {
	Title       string
	Description *string
	Priority    *int
	Deadline    *time.Time
	Status      string
}

// TaskService resolves the caller to a user and enforces task ownership.
type TaskService struct {
	tasks repo.TaskRepository
	users repo.UserRepository
	now   func() time.Time
}

func NewTaskService(tasks repo.TaskRepository, users repo.UserRepository) *TaskService {
	return &TaskService{
		tasks: tasks,
		users: users,
		now:   time.Now,
	}
}

func (s *TaskService) Create(ctx context.Context, username string, in NewTask) (model.Task, error) {
	if err := s.validateNew(in); err != nil {
		return model.Task{}, err
	}

	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return model.Task{}, err
	}

	status := in.Status
	if status == "" {
		status = model.StatusTodo
	}

	return s.tasks.Create(ctx, model.Task{
		UserID:      user.ID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    *in.Priority,
		Deadline:    in.Deadline,
		Status:      status,
	})
}

// List returns the caller's tasks, oldest first.
func (s *TaskService) List(ctx context.Context, username string) ([]model.Task, error) {
	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.tasks.ListByOwner(ctx, user.ID)
}

func (s *TaskService) Get(ctx context.Context, username string, id uuid.UUID) (model.Task, error) {
	return s.ownedTask(ctx, username, id)
}

func (s *TaskService) Update(ctx context.Context, username string, id uuid.UUID, patch model.TaskPatch) (model.Task, error) {
	if err := s.validatePatch(patch); err != nil {
		return model.Task{}, err
	}

	task, err := s.ownedTask(ctx, username, id)
	if err != nil {
		return model.Task{}, err
	}
	if patch.Deadline != nil && !patch.Deadline.After(task.CreatedAt) {
		return model.Task{}, fmt.Errorf("%w: deadline must be after the task's creation time", ErrValidation)
	}

	return s.tasks.Update(ctx, task.ID, patch)
}

func (s *TaskService) Delete(ctx context.Context, username string, id uuid.UUID) (model.Task, error) {
	task, err := s.ownedTask(ctx, username, id)
	if err != nil {
		return model.Task{}, err
	}
	return s.tasks.Delete(ctx, task.ID)
}

func (s *TaskService) resolveUser(ctx context.Context, username string) (model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repo.ErrorNotFound) {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return user, err
}

// ownedTask loads the task and fails with ErrForbidden unless the caller owns it.
func (s *TaskService) ownedTask(ctx context.Context, username string, id uuid.UUID) (model.Task, error) {
	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return model.Task{}, err
	}

	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if task.UserID != user.ID {
		return model.Task{}, ErrForbidden
	}
	return task, nil
}

func (s *TaskService) validateNew(in NewTask) error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if in.Priority == nil {
		return fmt.Errorf("%w: priority is required", ErrValidation)
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	// An omitted status defaults to todo.
	if in.Status != "" {
		if err := validateStatus(in.Status); err != nil {
			return err
		}
	}
	if in.Deadline != nil && !in.Deadline.After(s.now()) {
		return fmt.Errorf("%w: deadline must be in the future", ErrValidation)
	}
	return nil
}

func (s *TaskService) validatePatch(p model.TaskPatch) error {
	if p.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if err := validateDescription(p.Description); err != nil {
		return err
	}
	if p.Status != nil {
		return validateStatus(*p.Status)
	}
	return nil
}

func validateStatus(status string) error {
	if strings.TrimSpace(status) == "" {
		return fmt.Errorf("%w: status must not be empty", ErrValidation)
	}
	if utf8.RuneCountInString(status) > MaxStatusLength {
		return fmt.Errorf("%w: status exceeds %d characters", ErrValidation, MaxStatusLength)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	return nil
}

func validateDescription(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}
	return nil
}
