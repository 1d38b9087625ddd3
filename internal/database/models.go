package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID         uuid.UUID
	Name       string
	IsModifier bool
	SortOrder  int32
}

type InventoryItem struct {
	ID           uuid.UUID
	Name         string
	Unit         string
	InitialStock pgtype.Numeric
	CurrentStock pgtype.Numeric
}

type Product struct {
	ID              uuid.UUID
	CategoryID      uuid.UUID
	Name            string
	Price           pgtype.Numeric
	InventoryItemID pgtype.UUID
	ConsumedPerUnit pgtype.Numeric
	IsActive        bool
}

type ModifierSlot struct {
	ID                 uuid.UUID
	ProductID          uuid.UUID
	Label              string
	ModifierCategoryID uuid.UUID
	MinQuantity        int32
	MaxQuantity        int32
	SortOrder          int32
}

type SlotOption struct {
	ID              uuid.UUID
	SlotID          uuid.UUID
	ProductID       uuid.UUID
	IsDefault       bool
	PriceAdjustment pgtype.Numeric
	SortOrder       int32
}

type ServingStyle struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	SortOrder  int32
}

type Package struct {
	ID         uuid.UUID
	Name       string
	Price      pgtype.Numeric
	CategoryID pgtype.UUID
	IsActive   bool
}

type PackageItem struct {
	ID           uuid.UUID
	PackageID    uuid.UUID
	ProductID    uuid.UUID
	Quantity     int32
	DisplayOrder int32
}

type PackageItemSlotOverride struct {
	ID            uuid.UUID
	PackageItemID uuid.UUID
	SlotID        uuid.UUID
	MinQuantity   int32
	MaxQuantity   int32
}

type Staff struct {
	ID       uuid.UUID
	FullName string
	Role     string
	PinHash  string
	IsActive bool
}

// SavedOrder is the flattened order record. Items, Consumed and Cancellation
// are JSONB documents owned by the reconcile package.
type SavedOrder struct {
	ID            uuid.UUID
	OrderNumber   int32
	CustomerName  string
	PaymentMethod string
	Status        string
	Subtotal      pgtype.Numeric
	Total         pgtype.Numeric
	PaidAmount    pgtype.Numeric
	ChangeGiven   pgtype.Numeric
	Items         []byte
	Consumed      []byte
	Cancellation  []byte
	CreatedAt     time.Time
	UpdatedAt     pgtype.Timestamptz
}
