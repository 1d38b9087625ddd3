package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Categories ---

const listCategories = `SELECT id, name, is_modifier, sort_order FROM categories ORDER BY sort_order, name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.IsModifier, &c.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// --- Products ---

const productColumns = `id, category_id, name, price, inventory_item_id, consumed_per_unit, is_active`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Price, &p.InventoryItemID, &p.ConsumedPerUnit, &p.IsActive)
	return p, err
}

const getProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active = true`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProductsByCategory = `SELECT ` + productColumns + ` FROM products
WHERE category_id = $1 AND is_active = true
ORDER BY name`

func (q *Queries) ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProductsByCategory, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// --- Modifier slots ---

const slotColumns = `id, product_id, label, modifier_category_id, min_quantity, max_quantity, sort_order`

func scanSlot(row pgx.Row) (ModifierSlot, error) {
	var s ModifierSlot
	err := row.Scan(&s.ID, &s.ProductID, &s.Label, &s.ModifierCategoryID, &s.MinQuantity, &s.MaxQuantity, &s.SortOrder)
	return s, err
}

const listModifierSlotsByProduct = `SELECT ` + slotColumns + ` FROM modifier_slots
WHERE product_id = $1
ORDER BY sort_order, label`

func (q *Queries) ListModifierSlotsByProduct(ctx context.Context, productID uuid.UUID) ([]ModifierSlot, error) {
	rows, err := q.db.Query(ctx, listModifierSlotsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ModifierSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type GetModifierSlotParams struct {
	ID        uuid.UUID
	ProductID uuid.UUID
}

const getModifierSlot = `SELECT ` + slotColumns + ` FROM modifier_slots WHERE id = $1 AND product_id = $2`

func (q *Queries) GetModifierSlot(ctx context.Context, arg GetModifierSlotParams) (ModifierSlot, error) {
	return scanSlot(q.db.QueryRow(ctx, getModifierSlot, arg.ID, arg.ProductID))
}

type CreateModifierSlotParams struct {
	ProductID          uuid.UUID
	Label              string
	ModifierCategoryID uuid.UUID
	MinQuantity        int32
	MaxQuantity        int32
	SortOrder          int32
}

const createModifierSlot = `INSERT INTO modifier_slots (product_id, label, modifier_category_id, min_quantity, max_quantity, sort_order)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + slotColumns

func (q *Queries) CreateModifierSlot(ctx context.Context, arg CreateModifierSlotParams) (ModifierSlot, error) {
	return scanSlot(q.db.QueryRow(ctx, createModifierSlot,
		arg.ProductID, arg.Label, arg.ModifierCategoryID, arg.MinQuantity, arg.MaxQuantity, arg.SortOrder))
}

type UpdateModifierSlotParams struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	Label       string
	MinQuantity int32
	MaxQuantity int32
	SortOrder   int32
}

const updateModifierSlot = `UPDATE modifier_slots
SET label = $3, min_quantity = $4, max_quantity = $5, sort_order = $6
WHERE id = $1 AND product_id = $2
RETURNING ` + slotColumns

func (q *Queries) UpdateModifierSlot(ctx context.Context, arg UpdateModifierSlotParams) (ModifierSlot, error) {
	return scanSlot(q.db.QueryRow(ctx, updateModifierSlot,
		arg.ID, arg.ProductID, arg.Label, arg.MinQuantity, arg.MaxQuantity, arg.SortOrder))
}

// --- Slot options ---

const slotOptionColumns = `id, slot_id, product_id, is_default, price_adjustment, sort_order`

func scanSlotOption(row pgx.Row) (SlotOption, error) {
	var o SlotOption
	err := row.Scan(&o.ID, &o.SlotID, &o.ProductID, &o.IsDefault, &o.PriceAdjustment, &o.SortOrder)
	return o, err
}

const listSlotOptionsByProduct = `SELECT so.id, so.slot_id, so.product_id, so.is_default, so.price_adjustment, so.sort_order
FROM slot_options so
JOIN modifier_slots ms ON ms.id = so.slot_id
WHERE ms.product_id = $1
ORDER BY so.slot_id, so.sort_order`

// ListSlotOptionsByProduct returns the explicit options of every slot owned by
// the product in one round trip.
func (q *Queries) ListSlotOptionsByProduct(ctx context.Context, productID uuid.UUID) ([]SlotOption, error) {
	rows, err := q.db.Query(ctx, listSlotOptionsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SlotOption
	for rows.Next() {
		o, err := scanSlotOption(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type UpsertSlotOptionParams struct {
	SlotID          uuid.UUID
	ProductID       uuid.UUID
	IsDefault       bool
	PriceAdjustment pgtype.Numeric
	SortOrder       int32
}

const upsertSlotOption = `INSERT INTO slot_options (slot_id, product_id, is_default, price_adjustment, sort_order)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (slot_id, product_id)
DO UPDATE SET is_default = EXCLUDED.is_default, price_adjustment = EXCLUDED.price_adjustment, sort_order = EXCLUDED.sort_order
RETURNING ` + slotOptionColumns

func (q *Queries) UpsertSlotOption(ctx context.Context, arg UpsertSlotOptionParams) (SlotOption, error) {
	return scanSlotOption(q.db.QueryRow(ctx, upsertSlotOption,
		arg.SlotID, arg.ProductID, arg.IsDefault, arg.PriceAdjustment, arg.SortOrder))
}

type DeleteSlotOptionParams struct {
	SlotID    uuid.UUID
	ProductID uuid.UUID
}

const deleteSlotOption = `DELETE FROM slot_options WHERE slot_id = $1 AND product_id = $2`

func (q *Queries) DeleteSlotOption(ctx context.Context, arg DeleteSlotOptionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteSlotOption, arg.SlotID, arg.ProductID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- Serving styles ---

const listServingStylesByCategory = `SELECT id, category_id, name, sort_order FROM serving_styles
WHERE category_id = $1
ORDER BY sort_order, name`

func (q *Queries) ListServingStylesByCategory(ctx context.Context, categoryID uuid.UUID) ([]ServingStyle, error) {
	rows, err := q.db.Query(ctx, listServingStylesByCategory, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ServingStyle
	for rows.Next() {
		var s ServingStyle
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// --- Packages ---

const packageColumns = `id, name, price, category_id, is_active`

func scanPackage(row pgx.Row) (Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.CategoryID, &p.IsActive)
	return p, err
}

const getPackage = `SELECT ` + packageColumns + ` FROM packages WHERE id = $1 AND is_active = true`

func (q *Queries) GetPackage(ctx context.Context, id uuid.UUID) (Package, error) {
	return scanPackage(q.db.QueryRow(ctx, getPackage, id))
}

const listPackagesByCategory = `SELECT ` + packageColumns + ` FROM packages
WHERE category_id = $1 AND is_active = true
ORDER BY name`

func (q *Queries) ListPackagesByCategory(ctx context.Context, categoryID uuid.UUID) ([]Package, error) {
	rows, err := q.db.Query(ctx, listPackagesByCategory, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// --- Package items ---

const packageItemColumns = `id, package_id, product_id, quantity, display_order`

func scanPackageItem(row pgx.Row) (PackageItem, error) {
	var pi PackageItem
	err := row.Scan(&pi.ID, &pi.PackageID, &pi.ProductID, &pi.Quantity, &pi.DisplayOrder)
	return pi, err
}

const listPackageItems = `SELECT ` + packageItemColumns + ` FROM package_items
WHERE package_id = $1
ORDER BY display_order, id`

func (q *Queries) ListPackageItems(ctx context.Context, packageID uuid.UUID) ([]PackageItem, error) {
	rows, err := q.db.Query(ctx, listPackageItems, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PackageItem
	for rows.Next() {
		pi, err := scanPackageItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, pi)
	}
	return items, rows.Err()
}

type GetPackageItemParams struct {
	ID        uuid.UUID
	PackageID uuid.UUID
}

const getPackageItem = `SELECT ` + packageItemColumns + ` FROM package_items WHERE id = $1 AND package_id = $2`

func (q *Queries) GetPackageItem(ctx context.Context, arg GetPackageItemParams) (PackageItem, error) {
	return scanPackageItem(q.db.QueryRow(ctx, getPackageItem, arg.ID, arg.PackageID))
}

type CreatePackageItemParams struct {
	PackageID    uuid.UUID
	ProductID    uuid.UUID
	Quantity     int32
	DisplayOrder int32
}

const createPackageItem = `INSERT INTO package_items (package_id, product_id, quantity, display_order)
VALUES ($1, $2, $3, $4)
RETURNING ` + packageItemColumns

func (q *Queries) CreatePackageItem(ctx context.Context, arg CreatePackageItemParams) (PackageItem, error) {
	return scanPackageItem(q.db.QueryRow(ctx, createPackageItem, arg.PackageID, arg.ProductID, arg.Quantity, arg.DisplayOrder))
}

type DeletePackageItemParams struct {
	ID        uuid.UUID
	PackageID uuid.UUID
}

const deletePackageItem = `DELETE FROM package_items WHERE id = $1 AND package_id = $2`

func (q *Queries) DeletePackageItem(ctx context.Context, arg DeletePackageItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePackageItem, arg.ID, arg.PackageID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- Package item slot overrides ---

const overrideColumns = `id, package_item_id, slot_id, min_quantity, max_quantity`

func scanOverride(row pgx.Row) (PackageItemSlotOverride, error) {
	var o PackageItemSlotOverride
	err := row.Scan(&o.ID, &o.PackageItemID, &o.SlotID, &o.MinQuantity, &o.MaxQuantity)
	return o, err
}

const listOverridesByPackageItem = `SELECT ` + overrideColumns + ` FROM package_item_slot_overrides
WHERE package_item_id = $1`

func (q *Queries) ListOverridesByPackageItem(ctx context.Context, packageItemID uuid.UUID) ([]PackageItemSlotOverride, error) {
	rows, err := q.db.Query(ctx, listOverridesByPackageItem, packageItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PackageItemSlotOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type UpsertPackageItemOverrideParams struct {
	PackageItemID uuid.UUID
	SlotID        uuid.UUID
	MinQuantity   int32
	MaxQuantity   int32
}

const upsertPackageItemOverride = `INSERT INTO package_item_slot_overrides (package_item_id, slot_id, min_quantity, max_quantity)
VALUES ($1, $2, $3, $4)
ON CONFLICT (package_item_id, slot_id)
DO UPDATE SET min_quantity = EXCLUDED.min_quantity, max_quantity = EXCLUDED.max_quantity
RETURNING ` + overrideColumns

func (q *Queries) UpsertPackageItemOverride(ctx context.Context, arg UpsertPackageItemOverrideParams) (PackageItemSlotOverride, error) {
	return scanOverride(q.db.QueryRow(ctx, upsertPackageItemOverride, arg.PackageItemID, arg.SlotID, arg.MinQuantity, arg.MaxQuantity))
}

type DeletePackageItemOverrideParams struct {
	PackageItemID uuid.UUID
	SlotID        uuid.UUID
}

const deletePackageItemOverride = `DELETE FROM package_item_slot_overrides WHERE package_item_id = $1 AND slot_id = $2`

func (q *Queries) DeletePackageItemOverride(ctx context.Context, arg DeletePackageItemOverrideParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePackageItemOverride, arg.PackageItemID, arg.SlotID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
