package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/orderengine/internal/database"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrPackageNotFound = errors.New("package not found")
)

// Gateway supplies catalog definitions on demand.
type Gateway interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	GetPackage(ctx context.Context, id uuid.UUID) (Package, error)
	ListPackageItems(ctx context.Context, packageID uuid.UUID) ([]PackageItem, error)
	// ListSlots returns the product's slots with their explicit options nested.
	ListSlots(ctx context.Context, productID uuid.UUID) ([]ModifierSlot, error)
	ListOverrides(ctx context.Context, packageItemID uuid.UUID) ([]SlotOverride, error)
	ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]Product, error)
	ListServingStyles(ctx context.Context, categoryID uuid.UUID) ([]ServingStyle, error)
}

// Store defines the DB methods the gateway reads from.
// Satisfied by *database.Queries.
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]database.Product, error)
	ListModifierSlotsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ModifierSlot, error)
	ListSlotOptionsByProduct(ctx context.Context, productID uuid.UUID) ([]database.SlotOption, error)
	ListServingStylesByCategory(ctx context.Context, categoryID uuid.UUID) ([]database.ServingStyle, error)
	GetPackage(ctx context.Context, id uuid.UUID) (database.Package, error)
	ListPackageItems(ctx context.Context, packageID uuid.UUID) ([]database.PackageItem, error)
	ListOverridesByPackageItem(ctx context.Context, packageItemID uuid.UUID) ([]database.PackageItemSlotOverride, error)
}

// StoreGateway is the Postgres-backed Gateway.
type StoreGateway struct {
	store Store
}

func NewStoreGateway(store Store) *StoreGateway {
	return &StoreGateway{store: store}
}

func (g *StoreGateway) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := g.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return toProduct(p), nil
}

func (g *StoreGateway) GetPackage(ctx context.Context, id uuid.UUID) (Package, error) {
	p, err := g.store.GetPackage(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Package{}, fmt.Errorf("%w: %s", ErrPackageNotFound, id)
		}
		return Package{}, fmt.Errorf("get package: %w", err)
	}
	return Package{
		ID:         p.ID,
		Name:       p.Name,
		Price:      database.Decimal(p.Price),
		CategoryID: database.FromNullUUID(p.CategoryID),
	}, nil
}

func (g *StoreGateway) ListPackageItems(ctx context.Context, packageID uuid.UUID) ([]PackageItem, error) {
	rows, err := g.store.ListPackageItems(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("list package items: %w", err)
	}
	items := make([]PackageItem, len(rows))
	for i, r := range rows {
		items[i] = PackageItem{
			ID:           r.ID,
			PackageID:    r.PackageID,
			ProductID:    r.ProductID,
			Quantity:     r.Quantity,
			DisplayOrder: r.DisplayOrder,
		}
	}
	return items, nil
}

func (g *StoreGateway) ListSlots(ctx context.Context, productID uuid.UUID) ([]ModifierSlot, error) {
	rows, err := g.store.ListModifierSlotsByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list modifier slots: %w", err)
	}
	if len(rows) == 0 {
		return []ModifierSlot{}, nil
	}
	opts, err := g.store.ListSlotOptionsByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list slot options: %w", err)
	}

	bySlot := make(map[uuid.UUID][]SlotOption, len(rows))
	for _, o := range opts {
		bySlot[o.SlotID] = append(bySlot[o.SlotID], SlotOption{
			ID:              o.ID,
			ProductID:       o.ProductID,
			IsDefault:       o.IsDefault,
			PriceAdjustment: database.Decimal(o.PriceAdjustment),
			SortOrder:       o.SortOrder,
		})
	}

	slots := make([]ModifierSlot, len(rows))
	for i, r := range rows {
		slots[i] = ModifierSlot{
			ID:                 r.ID,
			ProductID:          r.ProductID,
			Label:              r.Label,
			ModifierCategoryID: r.ModifierCategoryID,
			MinQuantity:        r.MinQuantity,
			MaxQuantity:        r.MaxQuantity,
			SortOrder:          r.SortOrder,
			Options:            bySlot[r.ID],
		}
	}
	return slots, nil
}

func (g *StoreGateway) ListOverrides(ctx context.Context, packageItemID uuid.UUID) ([]SlotOverride, error) {
	rows, err := g.store.ListOverridesByPackageItem(ctx, packageItemID)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	out := make([]SlotOverride, len(rows))
	for i, r := range rows {
		out[i] = SlotOverride{
			ID:            r.ID,
			PackageItemID: r.PackageItemID,
			SlotID:        r.SlotID,
			MinQuantity:   r.MinQuantity,
			MaxQuantity:   r.MaxQuantity,
		}
	}
	return out, nil
}

func (g *StoreGateway) ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]Product, error) {
	rows, err := g.store.ListProductsByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]Product, len(rows))
	for i, r := range rows {
		out[i] = toProduct(r)
	}
	return out, nil
}

func (g *StoreGateway) ListServingStyles(ctx context.Context, categoryID uuid.UUID) ([]ServingStyle, error) {
	rows, err := g.store.ListServingStylesByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list serving styles: %w", err)
	}
	out := make([]ServingStyle, len(rows))
	for i, r := range rows {
		out[i] = ServingStyle{ID: r.ID, CategoryID: r.CategoryID, Name: r.Name}
	}
	return out, nil
}

func toProduct(p database.Product) Product {
	return Product{
		ID:              p.ID,
		CategoryID:      p.CategoryID,
		Name:            p.Name,
		Price:           database.Decimal(p.Price),
		InventoryItemID: database.FromNullUUID(p.InventoryItemID),
		ConsumedPerUnit: database.Decimal(p.ConsumedPerUnit),
	}
}
