package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/kiwari-pos/orderengine/internal/middleware"
	"github.com/kiwari-pos/orderengine/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockView is the cached stock snapshot. Satisfied by *inventory.Stock.
type StockView interface {
	List(ctx context.Context) ([]inventory.Item, error)
	Refresh(ctx context.Context) error
	Update(items ...inventory.Item)
}

// InventoryHandler lists stock levels and applies manual adjustments.
type InventoryHandler struct {
	stock   StockView
	batcher inventory.Batcher
	push    service.Pusher
	logger  *zap.Logger
}

func NewInventoryHandler(stock StockView, batcher inventory.Batcher, push service.Pusher, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{stock: stock, batcher: batcher, push: push, logger: logger}
}

// RegisterRoutes mounts the read route. Adjustments are manager-only and
// registered separately through RegisterAdminRoutes.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

func (h *InventoryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/adjustments", h.Adjust)
	r.Post("/refresh", h.Refresh)
}

// --- Request types ---

type adjustmentLine struct {
	InventoryItemID string          `json:"inventory_item_id"`
	Delta           decimal.Decimal `json:"delta"`
}

type adjustmentRequest struct {
	Reason string           `json:"reason"`
	Lines  []adjustmentLine `json:"lines"`
}

// --- Handlers ---

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.stock.List(r.Context())
	if err != nil {
		writeError(w, h.logger, "list inventory", err)
		return
	}
	if items == nil {
		items = []inventory.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Adjust applies every line as one batch: all of them or none.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reason is required"})
		return
	}
	if len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one line is required"})
		return
	}

	deltas := inventory.Deltas{}
	for _, line := range req.Lines {
		id, err := uuid.Parse(line.InventoryItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory_item_id"})
			return
		}
		if line.Delta.IsZero() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must not be zero"})
			return
		}
		deltas.Add(id, line.Delta)
	}

	updated, err := h.batcher.ApplyBatch(r.Context(), deltas)
	if err != nil {
		writeError(w, h.logger, "adjust inventory", err)
		return
	}

	fields := []zap.Field{zap.String("reason", req.Reason), zap.Int("items", len(updated))}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		fields = append(fields, zap.String("staff_id", claims.StaffID.String()))
	}
	h.logger.Info("inventory adjusted", fields...)

	if len(updated) > 0 {
		h.stock.Update(updated...)
		h.push.Publish(enum.TopicInventory, "inventory.changed", updated)
	}
	if updated == nil {
		updated = []inventory.Item{}
	}
	writeJSON(w, http.StatusOK, updated)
}

// Refresh reloads the stock snapshot from the database.
func (h *InventoryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.stock.Refresh(r.Context()); err != nil {
		writeError(w, h.logger, "refresh inventory", err)
		return
	}
	h.List(w, r)
}
