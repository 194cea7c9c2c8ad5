package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory, manufacturing order and delivery routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/inventories", func(r chi.Router) {
		r.Get("/", h.listInventories)
		r.Post("/", h.createInventory)
		r.Get("/{id}", h.showInventory)
		r.Put("/{id}", h.updateInventory)
		r.Patch("/{id}", h.updateInventory)
		r.Delete("/{id}", h.remove(h.service.DeleteInventory))
		r.Post("/{id}/adjust", h.adjustStock)
		r.Get("/{id}/movements", h.listMovements)
	})
	r.Route("/manufacturing-orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.showOrder)
		r.Put("/{id}", h.updateOrder)
		r.Patch("/{id}", h.updateOrder)
		r.Delete("/{id}", h.remove(h.service.DeleteOrder))
	})
	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", h.listDeliveries)
		r.Post("/", h.createDelivery)
		r.Get("/{id}", h.showDelivery)
		r.Put("/{id}", h.updateDelivery)
		r.Patch("/{id}", h.updateDelivery)
		r.Delete("/{id}", h.remove(h.service.DeleteDelivery))
	})
}

func listFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search"), Status: q.Get("status")}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	return filter
}

func respondList[T any](w http.ResponseWriter, items []T, err error) {
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) respond(w http.ResponseWriter, status int, op string, v any, err error) {
	if err != nil {
		h.logger.Warn(op, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, status, v)
}

func (h *Handler) remove(del func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := del(r.Context(), id); err != nil {
			httpx.RespondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) listInventories(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListInventories(r.Context(), listFilter(r))
	respondList(w, items, err)
}

func (h *Handler) showInventory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInventory(r.Context(), id)
	h.respond(w, http.StatusOK, "show inventory", inv, err)
}

func (h *Handler) createInventory(w http.ResponseWriter, r *http.Request) {
	var req InventoryRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.CreateInventory(r.Context(), req)
	if err == nil {
		w.Header().Set("Location", "/api/inventories/"+strconv.FormatInt(inv.ID, 10))
	}
	h.respond(w, http.StatusCreated, "create inventory", inv, err)
}

func (h *Handler) updateInventory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req InventoryRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.UpdateInventory(r.Context(), id, req)
	h.respond(w, http.StatusOK, "update inventory", inv, err)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.Movements(r.Context(), id, limit)
	respondList(w, items, err)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req AdjustRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.AdjustStock(r.Context(), id, req, r.Header.Get("Idempotency-Key"))
	h.respond(w, http.StatusOK, "adjust stock", inv, err)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListOrders(r.Context(), listFilter(r))
	respondList(w, items, err)
}

func (h *Handler) showOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	mo, err := h.service.GetOrder(r.Context(), id)
	h.respond(w, http.StatusOK, "show manufacturing order", mo, err)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mo, err := h.service.CreateManufacturingOrder(r.Context(), req)
	if err == nil {
		w.Header().Set("Location", "/api/manufacturing-orders/"+strconv.FormatInt(mo.ID, 10))
	}
	h.respond(w, http.StatusCreated, "create manufacturing order", mo, err)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req OrderRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mo, err := h.service.UpdateManufacturingOrder(r.Context(), id, req)
	h.respond(w, http.StatusOK, "update manufacturing order", mo, err)
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListDeliveries(r.Context(), listFilter(r))
	respondList(w, items, err)
}

func (h *Handler) showDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.GetDelivery(r.Context(), id)
	h.respond(w, http.StatusOK, "show delivery", d, err)
}

func (h *Handler) createDelivery(w http.ResponseWriter, r *http.Request) {
	var req DeliveryRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.CreateDelivery(r.Context(), req)
	if err == nil {
		w.Header().Set("Location", "/api/deliveries/"+strconv.FormatInt(d.ID, 10))
	}
	h.respond(w, http.StatusCreated, "create delivery", d, err)
}

func (h *Handler) updateDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req DeliveryRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.UpdateDelivery(r.Context(), id, req)
	h.respond(w, http.StatusOK, "update delivery", d, err)
}
