package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aflyhorse/pinecitywms/internal/platform/httpx"
)

// Handler wires the JSON endpoints for report reads.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.handleInventory)
	r.Get("/reports/usage", h.handleUsage)
	r.Get("/reports/fees", h.handleFees)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if err != nil || warehouseID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "warehouse_id is required")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, total, err := h.service.Inventory(r.Context(), InventoryFilter{
		WarehouseID: warehouseID,
		Search:      r.URL.Query().Get("search"),
		Brand:       r.URL.Query().Get("brand"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		h.logger.Error("inventory listing failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"inventory": rows, "total": total})
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.periodFilter(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Usage(r.Context(), filter)
	if err != nil {
		h.logger.Error("usage report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"usage": rows})
}

func (h *Handler) handleFees(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.periodFilter(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Fees(r.Context(), filter)
	if err != nil {
		h.logger.Error("fee report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fees": rows})
}

func (h *Handler) periodFilter(w http.ResponseWriter, r *http.Request) (PeriodFilter, bool) {
	var filter PeriodFilter
	filter.WarehouseID, _ = strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)

	if raw := r.URL.Query().Get("start"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start must be YYYY-MM-DD")
			return PeriodFilter{}, false
		}
		filter.Start = start
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end must be YYYY-MM-DD")
			return PeriodFilter{}, false
		}
		// End date is inclusive in the query string, exclusive in SQL.
		filter.End = end.AddDate(0, 0, 1)
	}
	return filter, true
}
