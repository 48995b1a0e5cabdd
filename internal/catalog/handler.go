package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-stock/internal/productcode"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// Handler exposes vendor and product endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountVendorRoutes registers /vendors routes.
func (h *Handler) MountVendorRoutes(r chi.Router) {
	r.Get("/", h.listVendors)
	r.Post("/", h.createVendor)
	r.Delete("/batch", h.batchDeleteVendors)
	r.Get("/{id}", h.getVendor)
	r.Put("/{id}", h.updateVendor)
	r.Delete("/{id}", h.deleteVendor)
	r.Get("/{id}/products", h.productsByVendor)
}

// MountProductRoutes registers /products routes.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Post("/", h.createProduct)
	r.Get("/{id}", h.getProduct)
	r.Put("/{id}", h.updateProduct)
	r.Delete("/{id}", h.deleteProduct)
}

// MountProductCodeRoutes registers /product-codes routes.
func (h *Handler) MountProductCodeRoutes(r chi.Router) {
	r.Get("/{code}/verify", h.verifyProductCode)
}

type verifyResult struct {
	Code    string   `json:"code"`
	Valid   bool     `json:"valid"`
	Reason  string   `json:"reason,omitempty"`
	Product *Product `json:"product,omitempty"`
}

func (h *Handler) verifyProductCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	res := verifyResult{Code: code}
	if err := productcode.Validate(code); err != nil {
		res.Reason = err.Error()
		httpx.OK(w, "product code checked", res)
		return
	}
	res.Valid = true
	product, err := h.service.GetProductByCode(r.Context(), code)
	switch {
	case err == nil:
		res.Product = &product
	case !errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "product code checked", res)
}

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, total, err := h.service.ListVendors(r.Context(), VendorFilter{
		Name: r.URL.Query().Get("name"),
		Page: httpx.PageFromQuery(r),
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "vendors loaded", ListResult[Vendor]{Total: total, List: vendors})
}

func (h *Handler) getVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid vendor id")
		return
	}
	vendor, err := h.service.GetVendor(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "vendor loaded", vendor)
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if !h.decode(w, r, &req) {
		return
	}
	vendor, err := h.service.CreateVendor(r.Context(), VendorInput(req))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "vendor created", vendor)
}

func (h *Handler) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid vendor id")
		return
	}
	var req vendorRequest
	if !h.decode(w, r, &req) {
		return
	}
	vendor, err := h.service.UpdateVendor(r.Context(), id, VendorInput(req))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "vendor updated", vendor)
}

func (h *Handler) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid vendor id")
		return
	}
	deleted, err := h.service.DeleteVendors(r.Context(), []int64{id})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if deleted == 0 {
		httpx.RespondError(w, h.logger, ErrVendorNotFound)
		return
	}
	httpx.OK(w, "vendor deleted", nil)
}

func (h *Handler) batchDeleteVendors(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	deleted, err := h.service.DeleteVendors(r.Context(), req.ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "vendors deleted", map[string]int64{"count": deleted})
}

func (h *Handler) productsByVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid vendor id")
		return
	}
	products, total, err := h.service.ProductsByVendor(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "products loaded", ListResult[Product]{Total: total, List: products})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, total, err := h.service.ListProducts(r.Context(), ProductFilter{
		Name: r.URL.Query().Get("productName"),
		Page: httpx.PageFromQuery(r),
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "products loaded", ListResult[Product]{Total: total, List: products})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "product loaded", product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	product, err := h.service.CreateProduct(r.Context(), ProductInput(req))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "product created", product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req updateProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, ProductPatch(req))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "product updated", product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "product deleted", nil)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, h.logger, shared.ValidationErrorf("malformed body: %v", err))
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	return true
}
