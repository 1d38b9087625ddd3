// Package catalog reads product, package and modifier-slot definitions and
// resolves the modifier choices that are legal for a product, either on its
// own or embedded inside a package.
package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID              uuid.UUID       `json:"id"`
	CategoryID      uuid.UUID       `json:"category_id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	InventoryItemID uuid.NullUUID   `json:"inventory_item_id"`
	ConsumedPerUnit decimal.Decimal `json:"consumed_per_unit"`
}

// TracksStock reports whether selling one unit consumes inventory.
func (p Product) TracksStock() bool {
	return p.InventoryItemID.Valid && p.ConsumedPerUnit.IsPositive()
}

// SlotOption is an explicit allow-list entry of a slot. PriceAdjustment only
// applies within the owning slot.
type SlotOption struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	IsDefault       bool            `json:"is_default"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	SortOrder       int32           `json:"sort_order"`
}

type ModifierSlot struct {
	ID                 uuid.UUID    `json:"id"`
	ProductID          uuid.UUID    `json:"product_id"`
	Label              string       `json:"label"`
	ModifierCategoryID uuid.UUID    `json:"modifier_category_id"`
	MinQuantity        int32        `json:"min_quantity"`
	MaxQuantity        int32        `json:"max_quantity"`
	SortOrder          int32        `json:"sort_order"`
	Options            []SlotOption `json:"options"`
}

type ServingStyle struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
}

type Package struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID uuid.NullUUID   `json:"category_id"`
}

type PackageItem struct {
	ID           uuid.UUID `json:"id"`
	PackageID    uuid.UUID `json:"package_id"`
	ProductID    uuid.UUID `json:"product_id"`
	Quantity     int32     `json:"quantity"`
	DisplayOrder int32     `json:"display_order"`
}

// SlotOverride replaces a slot's bounds for one package item only.
type SlotOverride struct {
	ID            uuid.UUID `json:"id"`
	PackageItemID uuid.UUID `json:"package_item_id"`
	SlotID        uuid.UUID `json:"slot_id"`
	MinQuantity   int32     `json:"min_quantity"`
	MaxQuantity   int32     `json:"max_quantity"`
}

func cloneSlots(in []ModifierSlot) []ModifierSlot {
	if in == nil {
		return nil
	}
	out := make([]ModifierSlot, len(in))
	for i, s := range in {
		out[i] = s
		if s.Options != nil {
			out[i].Options = append([]SlotOption(nil), s.Options...)
		}
	}
	return out
}
