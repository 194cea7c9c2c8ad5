package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// Handler serves the billing API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func listFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search")}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, httpx.FieldError("customer_id", "must be an integer")
		}
		filter.CustomerID = &id
	}
	return filter, nil
}

func location(k string, id int64) string {
	return "/api" + k + "/" + strconv.FormatInt(id, 10)
}

func (h *Handler) listDocuments(k Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := listFilter(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		docs, err := h.service.ListDocuments(r.Context(), k, filter)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if docs == nil {
			docs = []Document{}
		}
		httpx.JSON(w, http.StatusOK, docs)
	}
}

func (h *Handler) showDocument(k Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		doc, err := h.service.GetDocument(r.Context(), k, id)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) createDocument(k Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DocumentRequest
		if err := httpx.DecodeAndValidate(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		doc, err := h.service.CreateDocument(r.Context(), k, req)
		if err != nil {
			h.logError("create "+k.Name, err)
			httpx.RespondError(w, err)
			return
		}
		w.Header().Set("Location", location(k.Path, doc.ID))
		httpx.JSON(w, http.StatusCreated, doc)
	}
}

func (h *Handler) updateDocument(k Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var req DocumentRequest
		if err := httpx.DecodeAndValidate(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		doc, err := h.service.UpdateDocument(r.Context(), k, id, req)
		if err != nil {
			h.logError("update "+k.Name, err, slog.Int64("id", id))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) removeDocument(k Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := h.service.DeleteDocument(r.Context(), k, id); err != nil {
			httpx.RespondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) listBillingNotes(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	notes, err := h.service.ListBillingNotes(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if notes == nil {
		notes = []BillingNote{}
	}
	httpx.JSON(w, http.StatusOK, notes)
}

func (h *Handler) showBillingNote(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bn, err := h.service.GetBillingNote(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bn)
}

func (h *Handler) createBillingNote(w http.ResponseWriter, r *http.Request) {
	var req BillingNoteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bn, err := h.service.CreateBillingNote(r.Context(), req)
	if err != nil {
		h.logError("create billing note", err)
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Location", location("/billing-notes", bn.ID))
	httpx.JSON(w, http.StatusCreated, bn)
}

func (h *Handler) updateBillingNote(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req BillingNoteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bn, err := h.service.UpdateBillingNote(r.Context(), id, req)
	if err != nil {
		h.logError("update billing note", err, slog.Int64("billing_note_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bn)
}

func (h *Handler) removeBillingNote(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteBillingNote(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listTaxInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoices, err := h.service.ListTaxInvoices(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if invoices == nil {
		invoices = []TaxInvoice{}
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) showTaxInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ti, err := h.service.GetTaxInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ti)
}

func (h *Handler) nextTaxInvoiceCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.NextTaxInvoiceCode(r.Context())
	if err != nil {
		h.logger.Error("preview tax invoice code", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NextCodeResponse{NextCode: code})
}

func (h *Handler) createTaxInvoice(w http.ResponseWriter, r *http.Request) {
	var req TaxInvoiceRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ti, err := h.service.CreateTaxInvoice(r.Context(), req)
	if err != nil {
		h.logError("create tax invoice", err)
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Location", location("/tax-invoices", ti.ID))
	httpx.JSON(w, http.StatusCreated, ti)
}

func (h *Handler) updateTaxInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req TaxInvoiceRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ti, err := h.service.UpdateTaxInvoice(r.Context(), id, req)
	if err != nil {
		h.logError("update tax invoice", err, slog.Int64("tax_invoice_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ti)
}

func (h *Handler) removeTaxInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteTaxInvoice(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(msg string, err error, attrs ...any) {
	if errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrDuplicate) {
		return
	}
	h.logger.Error(msg, append(attrs, slog.Any("error", err))...)
}
