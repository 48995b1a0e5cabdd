package stock

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// IdempotencyHeader carries the client key that makes create retries safe.
const IdempotencyHeader = "Idempotency-Key"

// idempotencyKey returns the canonical form of the optional UUID key.
func idempotencyKey(r *http.Request) (string, error) {
	raw := r.Header.Get(IdempotencyHeader)
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", shared.ValidationErrorf("%s must be a UUID", IdempotencyHeader)
	}
	return id.String(), nil
}

// Handler wires HTTP endpoints for stock-in and stock-out documents.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	location  *time.Location
}

// NewHandler constructs the stock handler. loc interprets date-only query values.
func NewHandler(logger *slog.Logger, service *Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, validator: validator.New(), location: loc}
}

// Routes returns the route registration for one document kind.
func (h *Handler) Routes(kind Kind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.list(kind))
		r.Post("/", h.create(kind))
		r.Get("/{id}", h.get(kind))
		r.Put("/{id}", h.update(kind))
		r.Patch("/{id}/confirm", h.confirm(kind))
		r.Delete("/{id}", h.delete(kind))
	}
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{
			ProductName: q.Get("productName"),
			VendorName:  q.Get("vendorName"),
			Status:      Status(q.Get("status")),
			Page:        httpx.PageFromQuery(r),
		}
		if filter.Status != "" && filter.Status != StatusDraft && filter.Status != StatusCompleted {
			httpx.RespondError(w, h.logger, shared.ValidationErrorf("status must be DRAFT or COMPLETED"))
			return
		}
		for name, dst := range map[string]**time.Time{
			"deletedStart":   &filter.DeletedStart,
			"deletedEnd":     &filter.DeletedEnd,
			"completedStart": &filter.CompletedStart,
			"completedEnd":   &filter.CompletedEnd,
		} {
			v, err := httpx.TimeQuery(r, name, h.location)
			if err != nil {
				httpx.RespondError(w, h.logger, err)
				return
			}
			*dst = v
		}

		docs, total, err := h.service.List(r.Context(), kind, filter)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		perPage := filter.Page.Limit
		if filter.Page.Disabled {
			perPage = total
		}
		httpx.OK(w, kind.Module()+" list loaded", ListResult{
			Total:      total,
			Pagination: shared.NewPagination(filter.Page.Page, perPage, total),
			List:       docs,
		})
	}
}

func (h *Handler) get(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.IDParam(r, "id")
		if !ok {
			httpx.Fail(w, http.StatusBadRequest, "invalid document id")
			return
		}
		doc, err := h.service.Get(r.Context(), kind, id)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, kind.Module()+" loaded", doc)
	}
}

func (h *Handler) create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if !h.decode(w, r, &req, false) {
			return
		}
		key, err := idempotencyKey(r)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		lines, err := toLineInputs(kind, req.Lines)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		doc, err := h.service.Create(r.Context(), CreateInput{
			Kind:           kind,
			Remark:         req.Remark,
			Lines:          lines,
			IdempotencyKey: key,
		})
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, kind.Module()+" created", doc)
	}
}

func (h *Handler) update(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.IDParam(r, "id")
		if !ok {
			httpx.Fail(w, http.StatusBadRequest, "invalid document id")
			return
		}
		var req updateRequest
		if !h.decode(w, r, &req, false) {
			return
		}
		lines, err := toLineInputs(kind, req.Lines)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		res, err := h.service.Update(r.Context(), UpdateInput{
			Kind:    kind,
			ID:      id,
			Remark:  req.Remark,
			Lines:   lines,
			Version: req.Version,
		})
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		body := updateResponse{Removed: res.Removed, Added: res.Added, Modified: res.Modified, Deleted: res.Deleted}
		message := kind.Module() + " updated"
		if res.Removed {
			message = kind.Module() + " removed"
		} else {
			body.Document = &res.Document
		}
		httpx.OK(w, message, body)
	}
}

func (h *Handler) confirm(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.IDParam(r, "id")
		if !ok {
			httpx.Fail(w, http.StatusBadRequest, "invalid document id")
			return
		}
		var req confirmRequest
		if !h.decode(w, r, &req, true) {
			return
		}
		doc, err := h.service.Confirm(r.Context(), ConfirmInput{Kind: kind, ID: id, CompletedAt: req.CompletedAt, Version: req.Version})
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, kind.Module()+" confirmed", doc)
	}
}

func (h *Handler) delete(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.IDParam(r, "id")
		if !ok {
			httpx.Fail(w, http.StatusBadRequest, "invalid document id")
			return
		}
		input := DeleteInput{Kind: kind, ID: id}
		if raw := r.URL.Query().Get("version"); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || v <= 0 {
				httpx.Fail(w, http.StatusBadRequest, "invalid version")
				return
			}
			input.Version = &v
		}
		doc, err := h.service.Delete(r.Context(), input)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, kind.Module()+" deleted", doc)
	}
}

// decode parses and validates the JSON body. allowEmpty accepts a missing body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			httpx.RespondError(w, h.logger, shared.ValidationErrorf("malformed body: %v", err))
			return false
		}
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	return true
}
