package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/tasklist-api/internal/model"
	"github.com/BuzzLyutic/tasklist-api/internal/service"
)

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    *int       `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	Status      string     `json:"status"`
}

func (r createTaskRequest) toNewTask() service.NewTask {
	return service.NewTask{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Deadline:    r.Deadline,
		Status:      r.Status,
	}
}

// updateTaskRequest has every field optional; absent or null fields keep their value.
type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *int       `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	Status      *string    `json:"status"`
}

func (r updateTaskRequest) toPatch() model.TaskPatch {
	return model.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Deadline:    r.Deadline,
		Status:      r.Status,
	}
}

type taskResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    int        `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toTaskResponse(t model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Deadline:    t.Deadline,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}

func toTaskResponses(tasks []model.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

type userResponse struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		GivenName:  u.GivenName,
		FamilyName: u.FamilyName,
		CreatedAt:  u.CreatedAt,
	}
}
