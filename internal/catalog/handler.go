package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aflyhorse/pinecitywms/internal/platform/httpx"
	"github.com/aflyhorse/pinecitywms/internal/shared"
)

type createItemRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

type createSKURequest struct {
	ItemID int64  `json:"item_id" validate:"required,gt=0"`
	Brand  string `json:"brand" validate:"max=64"`
	Spec   string `json:"spec" validate:"max=128"`
}

type createWarehouseRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	OwnerID  int64  `json:"owner_id"`
	IsPublic bool   `json:"is_public"`
}

// Handler wires the JSON endpoints for catalog master data.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.handleListItems)
		r.Post("/", h.handleCreateItem)
	})
	r.Route("/skus", func(r chi.Router) {
		r.Get("/", h.handleListSKUs)
		r.Post("/", h.handleCreateSKU)
		r.Get("/{id}", h.handleGetSKU)
		r.Post("/{id}/disable", h.handleDisableSKU)
		r.Post("/{id}/enable", h.handleEnableSKU)
	})
	r.Route("/warehouses", func(r chi.Router) {
		r.Get("/", h.handleListWarehouses)
		r.Post("/", h.handleCreateWarehouse)
	})
	r.Get("/areas", h.handleListAreas)
	r.Get("/departments", h.handleListDepartments)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.respondCatalogError(w, "list items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	item, err := h.service.CreateItem(r.Context(), req.Name, actor)
	if err != nil {
		h.respondCatalogError(w, "create item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleListSKUs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := SKUFilters{
		Search:          r.URL.Query().Get("search"),
		Brand:           r.URL.Query().Get("brand"),
		IncludeDisabled: r.URL.Query().Get("include_disabled") == "true",
		Page:            page,
		Limit:           limit,
	}
	skus, total, err := h.service.ListSKUs(r.Context(), filters)
	if err != nil {
		h.respondCatalogError(w, "list skus", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"skus": skus, "total": total})
}

func (h *Handler) handleCreateSKU(w http.ResponseWriter, r *http.Request) {
	var req createSKURequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	sku, err := h.service.CreateSKU(r.Context(), req.ItemID, req.Brand, req.Spec, actor)
	if err != nil {
		h.respondCatalogError(w, "create sku", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sku)
}

func (h *Handler) handleGetSKU(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sku, err := h.service.GetSKU(r.Context(), id)
	if err != nil {
		h.respondCatalogError(w, "get sku", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sku)
}

func (h *Handler) handleDisableSKU(w http.ResponseWriter, r *http.Request) {
	h.setSKUDisabled(w, r, true)
}

func (h *Handler) handleEnableSKU(w http.ResponseWriter, r *http.Request) {
	h.setSKUDisabled(w, r, false)
}

func (h *Handler) setSKUDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, actorOK := shared.ActorFromContext(r.Context())
	if !actorOK {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var err error
	if disabled {
		err = h.service.DisableSKU(r.Context(), id, actor)
	} else {
		err = h.service.EnableSKU(r.Context(), id, actor)
	}
	if err != nil {
		h.respondCatalogError(w, "set sku disabled", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListWarehouses(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	warehouses, err := h.service.VisibleWarehouses(r.Context(), actor)
	if err != nil {
		h.respondCatalogError(w, "list warehouses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"warehouses": warehouses})
}

func (h *Handler) handleCreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req createWarehouseRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	warehouse, err := h.service.CreateWarehouse(r.Context(), Warehouse{
		Name:     req.Name,
		OwnerID:  req.OwnerID,
		IsPublic: req.IsPublic,
	}, actor)
	if err != nil {
		h.respondCatalogError(w, "create warehouse", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, warehouse)
}

func (h *Handler) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.service.ListAreas(r.Context())
	if err != nil {
		h.respondCatalogError(w, "list areas", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"areas": areas})
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	areaID, _ := strconv.ParseInt(r.URL.Query().Get("area_id"), 10, 64)
	departments, err := h.service.ListDepartments(r.Context(), areaID)
	if err != nil {
		h.respondCatalogError(w, "list departments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"departments": departments})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondCatalogError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrDuplicateItem), errors.Is(err, ErrDuplicateSKU), errors.Is(err, ErrDuplicateName):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrSKUNotFound), errors.Is(err, ErrWarehouseNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidOwnership):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrPermissionDenied):
		httpx.RespondError(w, httpx.ErrForbidden)
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
