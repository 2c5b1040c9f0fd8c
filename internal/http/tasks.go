package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/service"
	"github.com/taskforge/taskforge/pkg/httpx"
	"github.com/taskforge/taskforge/pkg/slogx"
)

// TasksHandler handles the per-user task CRUD endpoints.
type TasksHandler struct {
	TaskService *service.TaskService
}

type taskRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	DueDate     *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

type taskStatusRequest struct {
	Done *bool `json:"done" validate:"required"`
}

type taskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	IsDone      bool      `json:"isDone"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaskResponse(t domain.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		IsDone:      t.IsDone,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// taskID parses the {id} path value. A non-numeric id is simply a task that
// cannot exist.
func taskID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// HandleList handles GET /v1/tasks.
func (h *TasksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}

	tasks, err := h.TaskService.List(ctx, userID)
	if err != nil {
		log.Error("task list failed", "user_id", userID, "err", err)
		writeServerError(w)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /v1/tasks.
func (h *TasksHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}

	req, err := bindAndValidate[taskRequest](r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	task, err := h.TaskService.Create(ctx, userID, req.Title, req.Description, req.DueDate)
	if err != nil {
		log.Error("task create failed", "user_id", userID, "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toTaskResponse(task))
}

// HandleGet handles GET /v1/tasks/{id}.
func (h *TasksHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}

	id, err := taskID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "task_not_found", "No such task")
		return
	}

	task, err := h.TaskService.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task_not_found", "No such task")
			return
		}
		log.Error("task get failed", "user_id", userID, "task_id", id, "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTaskResponse(task))
}

// HandleUpdate handles PUT /v1/tasks/{id}.
func (h *TasksHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}

	id, err := taskID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "task_not_found", "No such task")
		return
	}

	req, err := bindAndValidate[taskRequest](r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	task, err := h.TaskService.Update(ctx, userID, id, req.Title, req.Description, req.DueDate)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task_not_found", "No such task")
			return
		}
		log.Error("task update failed", "user_id", userID, "task_id", id, "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTaskResponse(task))
}

// HandleSetStatus handles PATCH /v1/tasks/{id}/status.
func (h *TasksHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}

	id, err := taskID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "task_not_found", "No such task")
		return
	}

	req, err := bindAndValidate[taskStatusRequest](r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.TaskService.SetDone(ctx, userID, id, *req.Done); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task_not_found", "No such task")
			return
		}
		log.Error("task status update failed", "user_id", userID, "task_id", id, "err", err)
		writeServerError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/tasks/{id}.
func (h *TasksHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}

	id, err := taskID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "task_not_found", "No such task")
		return
	}

	if err := h.TaskService.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task_not_found", "No such task")
			return
		}
		log.Error("task delete failed", "user_id", userID, "task_id", id, "err", err)
		writeServerError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
