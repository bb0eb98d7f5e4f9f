package handlers

import (
	"context"
	"net/http"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/models"
)

type taskService interface {
	Create(ctx context.Context, userID int64, req models.CreateTaskRequest) (*models.Task, error)
	Get(ctx context.Context, userID, id int64) (*models.Task, error)
	List(ctx context.Context, userID int64, completed *bool) ([]*models.Task, error)
	Update(ctx context.Context, userID, id int64, req models.UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, userID, id int64) error
}

type TaskHandler struct {
	tasks taskService
}

func NewTaskHandler(tasks taskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	completed, ok := parseOptionalBool(w, r, "completed")
	if !ok {
		return
	}

	tasks, err := h.tasks.List(r.Context(), middleware.GetUserID(r.Context()), completed)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.tasks.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update serves both PUT and PATCH; absent fields are left unchanged either way.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req models.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.tasks.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
