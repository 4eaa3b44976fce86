package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aflyhorse/pinecitywms/internal/platform/httpx"
	"github.com/aflyhorse/pinecitywms/internal/shared"
)

// Handler wires the JSON endpoints for receipt posting and revocation.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/stock-in", h.handleStockIn)
	r.Post("/stock-out", h.handleStockOut)
	r.Post("/take-stock", h.handleTakeStock)
	r.Get("/receipts/{id}", h.handleGetReceipt)
	r.Post("/receipts/{id}/revoke", h.handleRevoke)
}

func (h *Handler) handleStockIn(w http.ResponseWriter, r *http.Request) {
	var req stockInRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	receipt, err := h.service.StockIn(r.Context(), StockInInput{
		WarehouseID: req.WarehouseID,
		Refcode:     req.Refcode,
		Note:        req.Note,
		OperatorID:  actor.ID,
		Lines:       lines,
	})
	if err != nil {
		h.respondLedgerError(w, r, "stock-in", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newReceiptResponse(receipt, nil))
}

func (h *Handler) handleStockOut(w http.ResponseWriter, r *http.Request) {
	var req stockOutRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	receipt, err := h.service.StockOut(r.Context(), StockOutInput{
		WarehouseID:  req.WarehouseID,
		Refcode:      req.Refcode,
		Note:         req.Note,
		OperatorID:   actor.ID,
		AreaID:       req.AreaID,
		DepartmentID: req.DepartmentID,
		Location:     req.Location,
		Lines:        lines,
	})
	if err != nil {
		h.respondLedgerError(w, r, "stock-out", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newReceiptResponse(receipt, nil))
}

func (h *Handler) handleTakeStock(w http.ResponseWriter, r *http.Request) {
	var req takeStockRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	receipt, err := h.service.TakeStock(r.Context(), TakeStockInput{
		WarehouseID: req.WarehouseID,
		Refcode:     req.Refcode,
		Note:        req.Note,
		OperatorID:  actor.ID,
		Lines:       lines,
	})
	if err != nil {
		h.respondLedgerError(w, r, "take-stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newReceiptResponse(receipt, nil))
}

func (h *Handler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	receipt, movements, err := h.service.GetReceipt(r.Context(), id)
	if err != nil {
		h.respondLedgerError(w, r, "get-receipt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newReceiptResponse(receipt, movements))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	var req revokeRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	counter, err := h.service.Revoke(r.Context(), id, req.Reason, actor)
	if err != nil {
		h.respondLedgerError(w, r, "revoke", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newReceiptResponse(counter, nil))
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

func (h *Handler) respondLedgerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var insufficient *InsufficientStockError
	var missing *ItemNotInWarehouseError
	switch {
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock",
			fmt.Sprintf("sku %d in warehouse %d: have %d, requested %d",
				insufficient.SKUID, insufficient.WarehouseID, insufficient.Current, insufficient.Requested))
	case errors.As(err, &missing):
		httpx.Problem(w, http.StatusConflict, "Item Not In Warehouse",
			fmt.Sprintf("sku %d has no stock record in warehouse %d", missing.SKUID, missing.WarehouseID))
	case errors.Is(err, ErrAlreadyRevoked):
		httpx.Problem(w, http.StatusConflict, "Already Revoked", "receipt was revoked before")
	case errors.Is(err, ErrRevokeWindowExpired):
		httpx.Problem(w, http.StatusForbidden, "Revocation Window Expired", err.Error())
	case errors.Is(err, ErrPermissionDenied):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrDuplicateRefcode):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrReceiptNotFound), errors.Is(err, ErrWarehouseNotFound), errors.Is(err, ErrSKUNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrSKUDisabled), errors.Is(err, ErrEmptyReceipt), errors.Is(err, ErrInvalidMovement):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
