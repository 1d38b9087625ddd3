package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fixture struct {
	mem *Memory

	mainCat, sauceCat uuid.UUID
	rawWings          uuid.UUID

	wings, sauceA, sauceB, sauceC uuid.UUID
	saucesSlot                    uuid.UUID

	combo, comboItem uuid.UUID
}

// newFixture builds Wings-6 with a Sauces slot (A, B +5) and a Combo package
// holding one Wings-6.
func newFixture() *fixture {
	f := &fixture{
		mem:        NewMemory(),
		mainCat:    uuid.New(),
		sauceCat:   uuid.New(),
		rawWings:   uuid.New(),
		wings:      uuid.New(),
		sauceA:     uuid.New(),
		sauceB:     uuid.New(),
		sauceC:     uuid.New(),
		saucesSlot: uuid.New(),
		combo:      uuid.New(),
		comboItem:  uuid.New(),
	}
	f.mem.PutProduct(Product{
		ID:              f.wings,
		CategoryID:      f.mainCat,
		Name:            "Wings-6",
		Price:           decimal.NewFromInt(95),
		InventoryItemID: uuid.NullUUID{UUID: f.rawWings, Valid: true},
		ConsumedPerUnit: decimal.NewFromInt(6),
	})
	f.mem.PutProduct(Product{ID: f.sauceA, CategoryID: f.sauceCat, Name: "Sauce-A", Price: decimal.Zero})
	f.mem.PutProduct(Product{ID: f.sauceB, CategoryID: f.sauceCat, Name: "Sauce-B", Price: decimal.Zero})
	f.mem.PutProduct(Product{ID: f.sauceC, CategoryID: f.sauceCat, Name: "Sauce-C", Price: decimal.NewFromInt(3)})
	f.mem.PutSlot(ModifierSlot{
		ID:                 f.saucesSlot,
		ProductID:          f.wings,
		Label:              "Sauces",
		ModifierCategoryID: f.sauceCat,
		MinQuantity:        1,
		MaxQuantity:        2,
		Options: []SlotOption{
			{ID: uuid.New(), ProductID: f.sauceA, IsDefault: true, SortOrder: 1},
			{ID: uuid.New(), ProductID: f.sauceB, PriceAdjustment: decimal.NewFromInt(5), SortOrder: 2},
		},
	})
	f.mem.PutPackage(
		Package{ID: f.combo, Name: "Combo", Price: decimal.NewFromInt(270)},
		PackageItem{ID: f.comboItem, PackageID: f.combo, ProductID: f.wings, Quantity: 1, DisplayOrder: 1},
	)
	return f
}
