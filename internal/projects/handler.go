package projects

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// Handler serves the project and task API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID, err := optionalID(q, "customer_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListProjects(r.Context(), ProjectFilter{CustomerID: customerID, Status: q.Get("status")})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Project{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) showProject(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.CreateProject(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ProjectRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.UpdateProject(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) projectTasks(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.GetProject(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.writeTasks(w, r, TaskFilter{ProjectID: &id, Status: r.URL.Query().Get("status")})
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, err := optionalID(q, "project_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.writeTasks(w, r, TaskFilter{ProjectID: projectID, Status: q.Get("status"), Assignee: q.Get("assignee")})
}

func (h *Handler) writeTasks(w http.ResponseWriter, r *http.Request, filter TaskFilter) {
	items, err := h.service.ListTasks(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Task{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) showTask(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.CreateTask(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req TaskRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.UpdateTask(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteTask(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionalID(q url.Values, name string) (*int64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, httpx.FieldError(name, "must be a positive integer")
	}
	return &id, nil
}
