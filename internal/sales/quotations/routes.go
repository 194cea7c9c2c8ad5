package quotations

import "github.com/go-chi/chi/v5"

// MountRoutes registers the quotation endpoints on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/quotations", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/next-code", h.nextCode)
		r.Get("/{id}", h.show)
		r.Put("/{id}", h.update)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.remove)
		r.Post("/{id}/duplicate", h.duplicate)
	})
	r.Post("/quotation-items/images", h.uploadImage)
}
