package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist-api/internal/model"
	"github.com/BuzzLyutic/tasklist-api/internal/service"
	"github.com/BuzzLyutic/tasklist-api/pkg/respond"
)

// TaskService is the owner-scoped task API the handlers call.
type TaskService interface {
	Create(ctx context.Context, username string, in service.NewTask) (model.Task, error)
	List(ctx context.Context, username string) ([]model.Task, error)
	Get(ctx context.Context, username string, id uuid.UUID) (model.Task, error)
	Update(ctx context.Context, username string, id uuid.UUID, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, username string, id uuid.UUID) (model.Task, error)
}

type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.service.Create(r.Context(), p.Username, req.toNewTask())
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/tasks/%s", task.ID))
	respond.JSON(w, r, http.StatusCreated, toTaskResponse(task))
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.List(r.Context(), p.Username)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, toTaskResponses(tasks))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), p.Username, id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, toTaskResponse(task))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.service.Update(r.Context(), p.Username, id, req.toPatch())
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, toTaskResponse(task))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.service.Delete(r.Context(), p.Username, id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, toTaskResponse(task))
}

// taskID parses the {task_id} URL parameter. Anything that is not a UUID cannot name a task.
func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "task_id"))
	if err != nil {
		respond.Error(w, r, http.StatusNotFound, "task not found")
		return uuid.Nil, false
	}
	return id, true
}

// decode reads the JSON request body into dst, answering 400 itself when it cannot.
func (h *TaskHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return false
	}
	return true
}
