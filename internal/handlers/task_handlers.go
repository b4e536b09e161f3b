package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/taskmanager/internal/domain"
)

// ListTasks reads status, priority, search, sortBy, page and limit from the
// query. Bad page or limit values fall back to the defaults.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DefaultTaskFilter()
	filter.Status = domain.TaskStatus(q.Get("status"))
	filter.Priority = domain.TaskPriority(q.Get("priority"))
	filter.Search = q.Get("search")

	if sortBy := q.Get("sortBy"); sortBy != "" {
		field, desc, err := domain.ParseSort(sortBy)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.SortField, filter.SortDesc = field, desc
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}

	if err := filter.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.taskService.List(r.Context(), userIDFrom(r), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tasks := res.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"count":   len(tasks),
		"total":   res.Total,
		"page":    filter.Page,
		"pages":   domain.Pages(res.Total, filter.Limit),
		"data":    tasks,
	})
}

func (h *Handlers) TaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskService.Stats(r.Context(), userIDFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "data": stats})
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), userIDFrom(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "data": task})
}

func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	task, err := h.taskService.Create(r.Context(), userIDFrom(r), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Task created successfully",
		"data":    task,
	})
}

func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	task, err := h.taskService.Update(r.Context(), userIDFrom(r), id, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Task updated successfully",
		"data":    task,
	})
}

func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), userIDFrom(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Task deleted successfully",
		"data":    struct{}{},
	})
}

// taskID parses the {id} URL parameter. Anything that cannot be an id is
// reported as a missing task.
func (h *Handlers) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, r, domain.Errorf(domain.ErrNotFound, "Task not found"))
		return 0, false
	}
	return id, true
}
