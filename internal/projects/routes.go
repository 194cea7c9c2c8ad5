package projects

import "github.com/go-chi/chi/v5"

// MountRoutes registers the project and task endpoints on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.listProjects)
		r.Post("/", h.createProject)
		r.Get("/{id}", h.showProject)
		r.Put("/{id}", h.updateProject)
		r.Patch("/{id}", h.updateProject)
		r.Delete("/{id}", h.deleteProject)
		r.Get("/{id}/tasks", h.projectTasks)
	})
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.listTasks)
		r.Post("/", h.createTask)
		r.Get("/{id}", h.showTask)
		r.Put("/{id}", h.updateTask)
		r.Patch("/{id}", h.updateTask)
		r.Delete("/{id}", h.deleteTask)
	})
}
