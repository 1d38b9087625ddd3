package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogStore defines the database methods the catalog browser needs on top
// of the gateway. Satisfied by *database.Queries.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]database.Category, error)
	ListPackagesByCategory(ctx context.Context, categoryID uuid.UUID) ([]database.Package, error)
}

// CatalogHandler serves the read side of the catalog: browsing plus resolved
// modifier slots for products and package sub-items.
type CatalogHandler struct {
	store    CatalogStore
	gw       catalog.Gateway
	slots    *catalog.SlotResolver
	packages *catalog.OverrideResolver
	logger   *zap.Logger
}

func NewCatalogHandler(store CatalogStore, gw catalog.Gateway, slots *catalog.SlotResolver, packages *catalog.OverrideResolver, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, gw: gw, slots: slots, packages: packages, logger: logger}
}

// RegisterRoutes expects to be mounted at /catalog.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{cid}/products", h.ListProducts)
	r.Get("/categories/{cid}/packages", h.ListPackages)
	r.Get("/categories/{cid}/serving-styles", h.ListServingStyles)
	r.Get("/products/{pid}/slots", h.ProductSlots)
	r.Get("/packages/{pkid}/items", h.PackageItems)
}

// --- Response types ---

type categoryResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	IsModifier bool      `json:"is_modifier"`
	SortOrder  int32     `json:"sort_order"`
}

type packageResponse struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
}

type packageItemsResponse struct {
	Package catalog.Package               `json:"package"`
	Items   []catalog.ResolvedPackageItem `json:"items"`
}

// --- Handlers ---

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, h.logger, "list categories", err)
		return
	}
	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, IsModifier: c.IsModifier, SortOrder: c.SortOrder}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := urlID(w, r, "cid", "category ID")
	if !ok {
		return
	}
	products, err := h.gw.ListProductsByCategory(r.Context(), categoryID)
	if err != nil {
		writeError(w, h.logger, "list products", err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := urlID(w, r, "cid", "category ID")
	if !ok {
		return
	}
	pkgs, err := h.store.ListPackagesByCategory(r.Context(), categoryID)
	if err != nil {
		writeError(w, h.logger, "list packages", err)
		return
	}
	resp := make([]packageResponse, len(pkgs))
	for i, p := range pkgs {
		resp[i] = packageResponse{ID: p.ID, Name: p.Name, Price: database.Decimal(p.Price)}
		if p.CategoryID.Valid {
			id := uuid.UUID(p.CategoryID.Bytes)
			resp[i].CategoryID = &id
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandler) ListServingStyles(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := urlID(w, r, "cid", "category ID")
	if !ok {
		return
	}
	styles, err := h.gw.ListServingStyles(r.Context(), categoryID)
	if err != nil {
		writeError(w, h.logger, "list serving styles", err)
		return
	}
	if styles == nil {
		styles = []catalog.ServingStyle{}
	}
	writeJSON(w, http.StatusOK, styles)
}

// ProductSlots returns the product's slots with their legal options.
func (h *CatalogHandler) ProductSlots(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlID(w, r, "pid", "product ID")
	if !ok {
		return
	}
	if _, err := h.gw.GetProduct(r.Context(), productID); err != nil {
		writeError(w, h.logger, "get product", err)
		return
	}
	slots, err := h.slots.Resolve(r.Context(), productID)
	if err != nil {
		writeError(w, h.logger, "resolve slots", err)
		return
	}
	if slots == nil {
		slots = []catalog.ResolvedSlot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

// PackageItems returns the package's sub-items with override-adjusted slots.
func (h *CatalogHandler) PackageItems(w http.ResponseWriter, r *http.Request) {
	packageID, ok := urlID(w, r, "pkid", "package ID")
	if !ok {
		return
	}
	pkg, items, err := h.packages.ResolvePackage(r.Context(), packageID)
	if err != nil {
		writeError(w, h.logger, "resolve package", err)
		return
	}
	if items == nil {
		items = []catalog.ResolvedPackageItem{}
	}
	writeJSON(w, http.StatusOK, packageItemsResponse{Package: pkg, Items: items})
}
