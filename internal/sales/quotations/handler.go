package quotations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

const maxImageBytes = 10 << 20

// Handler serves the quotation API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search")}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.FieldError("customer_id", "must be an integer"))
			return
		}
		filter.CustomerID = &id
	}
	if v := q.Get("archived"); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			httpx.RespondError(w, httpx.FieldError("archived", "must be true or false"))
			return
		}
		filter.Archived = &archived
	}
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Quotation{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) nextCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.NextCode(r.Context())
	if err != nil {
		h.logger.Error("preview quotation code", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NextCodeResponse{QOCode: code})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req QuotationRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logError("create quotation", err)
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Location", "/api/quotations/"+strconv.FormatInt(q.ID, 10))
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req QuotationRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logError("update quotation", err, slog.Int64("quotation_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req DuplicateRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes))
	if err != nil {
		httpx.RespondError(w, httpx.FieldError("body", "could not be read"))
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		if err := httpx.Validate(req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	q, err := h.service.Duplicate(r.Context(), id, req)
	if err != nil {
		h.logError("duplicate quotation", err, slog.Int64("quotation_id", id))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Location", "/api/quotations/"+strconv.FormatInt(q.ID, 10))
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		httpx.RespondError(w, httpx.FieldError("image", "multipart form with an image file is required"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		httpx.RespondError(w, httpx.FieldError("image", "is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		httpx.RespondError(w, httpx.FieldError("image", "could not be read"))
		return
	}
	key, err := h.service.UploadImage(r.Context(), header.Filename, data)
	if err != nil {
		h.logError("upload item image", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ImageUploadResponse{Image: key})
}

func (h *Handler) logError(msg string, err error, attrs ...any) {
	if errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrDuplicate) {
		return
	}
	h.logger.Error(msg, append(attrs, slog.Any("error", err))...)
}
