package crm

import "github.com/go-chi/chi/v5"

// MountRoutes registers the CRM endpoints on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Post("/", h.createCustomer)
		r.Get("/{id}", h.showCustomer)
		r.Put("/{id}", h.updateCustomer)
		r.Patch("/{id}", h.updateCustomer)
		r.Delete("/{id}", h.deleteCustomer)
	})
	r.Route("/eits", func(r chi.Router) {
		r.Get("/", h.listEITs)
		r.Post("/", h.createEIT)
		r.Get("/{id}", h.showEIT)
		r.Put("/{id}", h.updateEIT)
		r.Delete("/{id}", h.deleteEIT)
	})
	r.Route("/deals", func(r chi.Router) {
		r.Get("/", h.listDeals)
		r.Post("/", h.createDeal)
		r.Get("/export.xlsx", h.exportDeals)
		r.Get("/{id}", h.showDeal)
		r.Put("/{id}", h.updateDeal)
		r.Patch("/{id}", h.updateDeal)
		r.Delete("/{id}", h.deleteDeal)
		r.Get("/{id}/history", h.dealHistory)
	})
	r.Route("/activity-schedules", func(r chi.Router) {
		r.Get("/", h.listActivities)
		r.Post("/", h.createActivity)
		r.Post("/{id}/complete", h.completeActivity)
	})
	r.Route("/stages", func(r chi.Router) {
		r.Get("/", h.listStages)
		r.Post("/", h.createStage)
		r.Put("/{id}", h.updateStage)
		r.Delete("/{id}", h.deleteStage)
	})
	r.Get("/crm/analytics", h.analytics)
}
