package statistics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/httpx"
)

// Handler exposes statistics endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	location  *time.Location
}

// NewHandler constructs the statistics handler.
func NewHandler(logger *slog.Logger, service *Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, validator: validator.New(), location: loc}
}

// MountRoutes registers statistics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/hot-sales", h.hotSales)
}

type hotSalesParams struct {
	StartDate string `validate:"required,datetime=2006-01-02"`
	EndDate   string `validate:"required,datetime=2006-01-02"`
}

func (h *Handler) hotSales(w http.ResponseWriter, r *http.Request) {
	params := hotSalesParams{
		StartDate: r.URL.Query().Get("startDate"),
		EndDate:   r.URL.Query().Get("endDate"),
	}
	if err := h.validator.Struct(params); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	start, _ := time.ParseInLocation("2006-01-02", params.StartDate, h.location)
	end, _ := time.ParseInLocation("2006-01-02", params.EndDate, h.location)

	sales, err := h.service.HotSales(r.Context(), HotSalesQuery{StartDate: start, EndDate: end})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, "hot sales loaded", sales)
}
