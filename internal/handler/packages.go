package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/orderengine/internal/database"
	"go.uber.org/zap"
)

// PackageStore defines the database methods needed to administer package
// contents. Satisfied by *database.Queries.
type PackageStore interface {
	GetPackage(ctx context.Context, id uuid.UUID) (database.Package, error)
	ListPackageItems(ctx context.Context, packageID uuid.UUID) ([]database.PackageItem, error)
	GetPackageItem(ctx context.Context, arg database.GetPackageItemParams) (database.PackageItem, error)
	CreatePackageItem(ctx context.Context, arg database.CreatePackageItemParams) (database.PackageItem, error)
	DeletePackageItem(ctx context.Context, arg database.DeletePackageItemParams) (int64, error)
	GetModifierSlot(ctx context.Context, arg database.GetModifierSlotParams) (database.ModifierSlot, error)
	UpsertPackageItemOverride(ctx context.Context, arg database.UpsertPackageItemOverrideParams) (database.PackageItemSlotOverride, error)
	DeletePackageItemOverride(ctx context.Context, arg database.DeletePackageItemOverrideParams) (int64, error)
}

// PackageHandler administers package sub-items and their slot overrides.
type PackageHandler struct {
	store  PackageStore
	cache  Invalidator
	logger *zap.Logger
}

func NewPackageHandler(store PackageStore, cache Invalidator, logger *zap.Logger) *PackageHandler {
	return &PackageHandler{store: store, cache: cache, logger: logger}
}

// RegisterRoutes expects to be mounted at /catalog, next to CatalogHandler.
func (h *PackageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/packages/{pkid}/contents", h.ListItems)
	r.Post("/packages/{pkid}/items", h.AddItem)
	r.Delete("/packages/{pkid}/items/{iid}", h.RemoveItem)
	r.Put("/packages/{pkid}/items/{iid}/overrides/{sid}", h.PutOverride)
	r.Delete("/packages/{pkid}/items/{iid}/overrides/{sid}", h.DeleteOverride)
}

// --- Request / Response types ---

type packageItemRequest struct {
	ProductID    string `json:"product_id"`
	Quantity     int32  `json:"quantity"`
	DisplayOrder int32  `json:"display_order"`
}

type packageItemResponse struct {
	ID           uuid.UUID `json:"id"`
	PackageID    uuid.UUID `json:"package_id"`
	ProductID    uuid.UUID `json:"product_id"`
	Quantity     int32     `json:"quantity"`
	DisplayOrder int32     `json:"display_order"`
}

func toPackageItemResponse(pi database.PackageItem) packageItemResponse {
	return packageItemResponse{
		ID:           pi.ID,
		PackageID:    pi.PackageID,
		ProductID:    pi.ProductID,
		Quantity:     pi.Quantity,
		DisplayOrder: pi.DisplayOrder,
	}
}

type overrideRequest struct {
	MinQuantity *int32 `json:"min_quantity"`
	MaxQuantity *int32 `json:"max_quantity"`
}

type overrideResponse struct {
	ID            uuid.UUID `json:"id"`
	PackageItemID uuid.UUID `json:"package_item_id"`
	SlotID        uuid.UUID `json:"slot_id"`
	MinQuantity   int32     `json:"min_quantity"`
	MaxQuantity   int32     `json:"max_quantity"`
}

// verifyPackage checks the package exists.
func (h *PackageHandler) verifyPackage(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	packageID, ok := urlID(w, r, "pkid", "package ID")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.store.GetPackage(r.Context(), packageID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "package not found"})
			return uuid.Nil, false
		}
		h.logger.Error("verify package", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return uuid.Nil, false
	}
	return packageID, true
}

// verifyItem checks the sub-item belongs to the package.
func (h *PackageHandler) verifyItem(w http.ResponseWriter, r *http.Request) (database.PackageItem, bool) {
	packageID, ok := h.verifyPackage(w, r)
	if !ok {
		return database.PackageItem{}, false
	}
	itemID, ok := urlID(w, r, "iid", "package item ID")
	if !ok {
		return database.PackageItem{}, false
	}
	item, err := h.store.GetPackageItem(r.Context(), database.GetPackageItemParams{ID: itemID, PackageID: packageID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "package item not found"})
			return database.PackageItem{}, false
		}
		h.logger.Error("verify package item", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.PackageItem{}, false
	}
	return item, true
}

// --- Handlers ---

// ListItems returns the raw sub-item rows, without slot resolution.
func (h *PackageHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	packageID, ok := h.verifyPackage(w, r)
	if !ok {
		return
	}
	items, err := h.store.ListPackageItems(r.Context(), packageID)
	if err != nil {
		h.logger.Error("list package items", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]packageItemResponse, len(items))
	for i, it := range items {
		resp[i] = toPackageItemResponse(it)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PackageHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	packageID, ok := h.verifyPackage(w, r)
	if !ok {
		return
	}

	var req packageItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}

	item, err := h.store.CreatePackageItem(r.Context(), database.CreatePackageItemParams{
		PackageID:    packageID,
		ProductID:    productID,
		Quantity:     req.Quantity,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product does not exist"})
			return
		}
		h.logger.Error("create package item", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.cache.InvalidatePackage(packageID)
	writeJSON(w, http.StatusCreated, toPackageItemResponse(item))
}

func (h *PackageHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.verifyItem(w, r)
	if !ok {
		return
	}

	n, err := h.store.DeletePackageItem(r.Context(), database.DeletePackageItemParams{ID: item.ID, PackageID: item.PackageID})
	if err != nil {
		h.logger.Error("delete package item", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "package item not found"})
		return
	}

	h.cache.InvalidatePackage(item.PackageID)
	w.WriteHeader(http.StatusNoContent)
}

// PutOverride sets package-specific bounds on one of the sub-item product's
// slots.
func (h *PackageHandler) PutOverride(w http.ResponseWriter, r *http.Request) {
	item, ok := h.verifyItem(w, r)
	if !ok {
		return
	}
	slotID, ok := urlID(w, r, "sid", "slot ID")
	if !ok {
		return
	}
	_, err := h.store.GetModifierSlot(r.Context(), database.GetModifierSlotParams{ID: slotID, ProductID: item.ProductID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "slot not found on item product"})
			return
		}
		h.logger.Error("verify override slot", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var req overrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MinQuantity == nil || req.MaxQuantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "min_quantity and max_quantity are required"})
		return
	}
	lo, hi, msg := bounds(req.MinQuantity, req.MaxQuantity)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	ov, err := h.store.UpsertPackageItemOverride(r.Context(), database.UpsertPackageItemOverrideParams{
		PackageItemID: item.ID,
		SlotID:        slotID,
		MinQuantity:   lo,
		MaxQuantity:   hi,
	})
	if err != nil {
		if isCheckViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid override bounds"})
			return
		}
		h.logger.Error("upsert override", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.cache.InvalidatePackageItem(item.ID)
	writeJSON(w, http.StatusOK, overrideResponse{
		ID:            ov.ID,
		PackageItemID: ov.PackageItemID,
		SlotID:        ov.SlotID,
		MinQuantity:   ov.MinQuantity,
		MaxQuantity:   ov.MaxQuantity,
	})
}

func (h *PackageHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	item, ok := h.verifyItem(w, r)
	if !ok {
		return
	}
	slotID, ok := urlID(w, r, "sid", "slot ID")
	if !ok {
		return
	}

	n, err := h.store.DeletePackageItemOverride(r.Context(), database.DeletePackageItemOverrideParams{PackageItemID: item.ID, SlotID: slotID})
	if err != nil {
		h.logger.Error("delete override", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "override not found"})
		return
	}

	h.cache.InvalidatePackageItem(item.ID)
	w.WriteHeader(http.StatusNoContent)
}
