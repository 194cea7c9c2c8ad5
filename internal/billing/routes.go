package billing

import "github.com/go-chi/chi/v5"

// MountRoutes registers the billing endpoints on r.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, k := range Kinds() {
		r.Route(k.Path, func(r chi.Router) {
			r.Get("/", h.listDocuments(k))
			r.Post("/", h.createDocument(k))
			r.Get("/{id}", h.showDocument(k))
			r.Put("/{id}", h.updateDocument(k))
			r.Patch("/{id}", h.updateDocument(k))
			r.Delete("/{id}", h.removeDocument(k))
		})
	}
	r.Route("/billing-notes", func(r chi.Router) {
		r.Get("/", h.listBillingNotes)
		r.Post("/", h.createBillingNote)
		r.Get("/{id}", h.showBillingNote)
		r.Put("/{id}", h.updateBillingNote)
		r.Patch("/{id}", h.updateBillingNote)
		r.Delete("/{id}", h.removeBillingNote)
	})
	r.Route("/tax-invoices", func(r chi.Router) {
		r.Get("/", h.listTaxInvoices)
		r.Post("/", h.createTaxInvoice)
		r.Get("/next-code", h.nextTaxInvoiceCode)
		r.Get("/{id}", h.showTaxInvoice)
		r.Put("/{id}", h.updateTaxInvoice)
		r.Patch("/{id}", h.updateTaxInvoice)
		r.Delete("/{id}", h.removeTaxInvoice)
	})
}
