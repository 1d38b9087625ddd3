package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/orderengine/internal/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SlotStore defines the database methods needed to administer modifier
// slots. Satisfied by *database.Queries; narrow interface for testability.
type SlotStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetModifierSlot(ctx context.Context, arg database.GetModifierSlotParams) (database.ModifierSlot, error)
	CreateModifierSlot(ctx context.Context, arg database.CreateModifierSlotParams) (database.ModifierSlot, error)
	UpdateModifierSlot(ctx context.Context, arg database.UpdateModifierSlotParams) (database.ModifierSlot, error)
	UpsertSlotOption(ctx context.Context, arg database.UpsertSlotOptionParams) (database.SlotOption, error)
	DeleteSlotOption(ctx context.Context, arg database.DeleteSlotOptionParams) (int64, error)
}

// Invalidator drops cached catalog definitions after a write.
// Satisfied by *catalog.Cache.
type Invalidator interface {
	InvalidateProduct(id uuid.UUID)
	InvalidatePackage(id uuid.UUID)
	InvalidatePackageItem(id uuid.UUID)
}

// SlotHandler administers a product's modifier slots and their explicit
// options.
type SlotHandler struct {
	store  SlotStore
	cache  Invalidator
	logger *zap.Logger
}

func NewSlotHandler(store SlotStore, cache Invalidator, logger *zap.Logger) *SlotHandler {
	return &SlotHandler{store: store, cache: cache, logger: logger}
}

// RegisterRoutes expects to be mounted at /catalog, next to CatalogHandler.
func (h *SlotHandler) RegisterRoutes(r chi.Router) {
	r.Post("/products/{pid}/slots", h.CreateSlot)
	r.Put("/products/{pid}/slots/{sid}", h.UpdateSlot)
	r.Put("/products/{pid}/slots/{sid}/options/{opid}", h.PutOption)
	r.Delete("/products/{pid}/slots/{sid}/options/{opid}", h.DeleteOption)
}

// --- Request / Response types ---

type slotRequest struct {
	Label              string `json:"label"`
	ModifierCategoryID string `json:"modifier_category_id"`
	MinQuantity        *int32 `json:"min_quantity"`
	MaxQuantity        *int32 `json:"max_quantity"`
	SortOrder          int32  `json:"sort_order"`
}

type slotResponse struct {
	ID                 uuid.UUID `json:"id"`
	ProductID          uuid.UUID `json:"product_id"`
	Label              string    `json:"label"`
	ModifierCategoryID uuid.UUID `json:"modifier_category_id"`
	MinQuantity        int32     `json:"min_quantity"`
	MaxQuantity        int32     `json:"max_quantity"`
	SortOrder          int32     `json:"sort_order"`
}

func toSlotResponse(s database.ModifierSlot) slotResponse {
	return slotResponse{
		ID:                 s.ID,
		ProductID:          s.ProductID,
		Label:              s.Label,
		ModifierCategoryID: s.ModifierCategoryID,
		MinQuantity:        s.MinQuantity,
		MaxQuantity:        s.MaxQuantity,
		SortOrder:          s.SortOrder,
	}
}

type optionRequest struct {
	IsDefault       bool   `json:"is_default"`
	PriceAdjustment string `json:"price_adjustment"`
	SortOrder       int32  `json:"sort_order"`
}

type optionResponse struct {
	ID              uuid.UUID       `json:"id"`
	SlotID          uuid.UUID       `json:"slot_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	IsDefault       bool            `json:"is_default"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	SortOrder       int32           `json:"sort_order"`
}

// bounds validates min/max. Both default to 0/1 when omitted.
func bounds(minQ, maxQ *int32) (int32, int32, string) {
	lo, hi := int32(0), int32(1)
	if minQ != nil {
		lo = *minQ
	}
	if maxQ != nil {
		hi = *maxQ
	}
	if lo < 0 {
		return 0, 0, "min_quantity must be >= 0"
	}
	if hi < lo {
		return 0, 0, "max_quantity must be >= min_quantity"
	}
	return lo, hi, ""
}

// verifyProduct checks the product exists and returns its id.
func (h *SlotHandler) verifyProduct(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	productID, ok := urlID(w, r, "pid", "product ID")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.store.GetProduct(r.Context(), productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return uuid.Nil, false
		}
		h.logger.Error("verify product", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return uuid.Nil, false
	}
	return productID, true
}

// verifySlot checks the slot belongs to the product.
func (h *SlotHandler) verifySlot(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	productID, ok := h.verifyProduct(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	slotID, ok := urlID(w, r, "sid", "slot ID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	_, err := h.store.GetModifierSlot(r.Context(), database.GetModifierSlotParams{ID: slotID, ProductID: productID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "slot not found"})
			return uuid.Nil, uuid.Nil, false
		}
		h.logger.Error("verify slot", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return uuid.Nil, uuid.Nil, false
	}
	return productID, slotID, true
}

// --- Handlers ---

func (h *SlotHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.verifyProduct(w, r)
	if !ok {
		return
	}

	var req slotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
		return
	}
	categoryID, err := uuid.Parse(req.ModifierCategoryID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid modifier_category_id"})
		return
	}
	lo, hi, msg := bounds(req.MinQuantity, req.MaxQuantity)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	slot, err := h.store.CreateModifierSlot(r.Context(), database.CreateModifierSlotParams{
		ProductID:          productID,
		Label:              req.Label,
		ModifierCategoryID: categoryID,
		MinQuantity:        lo,
		MaxQuantity:        hi,
		SortOrder:          req.SortOrder,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid modifier_category_id"})
			return
		}
		if isCheckViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid slot bounds"})
			return
		}
		h.logger.Error("create slot", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.cache.InvalidateProduct(productID)
	writeJSON(w, http.StatusCreated, toSlotResponse(slot))
}

// UpdateSlot changes label, bounds and order. The modifier category is fixed
// once created.
func (h *SlotHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	productID, slotID, ok := h.verifySlot(w, r)
	if !ok {
		return
	}

	var req slotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
		return
	}
	lo, hi, msg := bounds(req.MinQuantity, req.MaxQuantity)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	slot, err := h.store.UpdateModifierSlot(r.Context(), database.UpdateModifierSlotParams{
		ID:          slotID,
		ProductID:   productID,
		Label:       req.Label,
		MinQuantity: lo,
		MaxQuantity: hi,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "slot not found"})
			return
		}
		if isCheckViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid slot bounds"})
			return
		}
		h.logger.Error("update slot", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.cache.InvalidateProduct(productID)
	writeJSON(w, http.StatusOK, toSlotResponse(slot))
}

// PutOption adds or updates the explicit option {opid} (a product id) in the
// slot.
func (h *SlotHandler) PutOption(w http.ResponseWriter, r *http.Request) {
	productID, slotID, ok := h.verifySlot(w, r)
	if !ok {
		return
	}
	optionProductID, ok := urlID(w, r, "opid", "option product ID")
	if !ok {
		return
	}

	var req optionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	adj := decimal.Zero
	if req.PriceAdjustment != "" {
		d, err := decimal.NewFromString(req.PriceAdjustment)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price_adjustment"})
			return
		}
		adj = d
	}

	opt, err := h.store.UpsertSlotOption(r.Context(), database.UpsertSlotOptionParams{
		SlotID:          slotID,
		ProductID:       optionProductID,
		IsDefault:       req.IsDefault,
		PriceAdjustment: database.Numeric(adj),
		SortOrder:       req.SortOrder,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "option product does not exist"})
			return
		}
		h.logger.Error("upsert slot option", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.cache.InvalidateProduct(productID)
	writeJSON(w, http.StatusOK, optionResponse{
		ID:              opt.ID,
		SlotID:          opt.SlotID,
		ProductID:       opt.ProductID,
		IsDefault:       opt.IsDefault,
		PriceAdjustment: database.Decimal(opt.PriceAdjustment),
		SortOrder:       opt.SortOrder,
	})
}

// DeleteOption removes an explicit option. A slot left with no options falls
// back to its whole modifier category.
func (h *SlotHandler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	productID, slotID, ok := h.verifySlot(w, r)
	if !ok {
		return
	}
	optionProductID, ok := urlID(w, r, "opid", "option product ID")
	if !ok {
		return
	}

	n, err := h.store.DeleteSlotOption(r.Context(), database.DeleteSlotOptionParams{SlotID: slotID, ProductID: optionProductID})
	if err != nil {
		h.logger.Error("delete slot option", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "option not found"})
		return
	}

	h.cache.InvalidateProduct(productID)
	w.WriteHeader(http.StatusNoContent)
}
