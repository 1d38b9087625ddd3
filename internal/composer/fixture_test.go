package composer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	cat   *catalog.Memory
	inv   *inventory.Memory
	stock *inventory.Stock
	c     *Composer

	mainCat, sauceCat   uuid.UUID
	rawWings, potato    uuid.UUID
	sauceStock          uuid.UUID
	wings, fries        uuid.UUID
	sauceA, sauceB      uuid.UUID
	saucesSlot          uuid.UUID
	combo               uuid.UUID
	comboWings, comboFr uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cat:        catalog.NewMemory(),
		mainCat:    uuid.New(),
		sauceCat:   uuid.New(),
		rawWings:   uuid.New(),
		potato:     uuid.New(),
		sauceStock: uuid.New(),
		wings:      uuid.New(),
		fries:      uuid.New(),
		sauceA:     uuid.New(),
		sauceB:     uuid.New(),
		saucesSlot: uuid.New(),
		combo:      uuid.New(),
		comboWings: uuid.New(),
		comboFr:    uuid.New(),
	}
	f.cat.PutProduct(catalog.Product{
		ID: f.wings, CategoryID: f.mainCat, Name: "Wings-6", Price: dec(95),
		InventoryItemID: uuid.NullUUID{UUID: f.rawWings, Valid: true}, ConsumedPerUnit: dec(6),
	})
	f.cat.PutProduct(catalog.Product{
		ID: f.fries, CategoryID: f.mainCat, Name: "Fries", Price: dec(30),
		InventoryItemID: uuid.NullUUID{UUID: f.potato, Valid: true}, ConsumedPerUnit: dec(1),
	})
	f.cat.PutProduct(catalog.Product{ID: f.sauceA, CategoryID: f.sauceCat, Name: "Sauce-A", Price: decimal.Zero})
	f.cat.PutProduct(catalog.Product{
		ID: f.sauceB, CategoryID: f.sauceCat, Name: "Sauce-B", Price: decimal.Zero,
		InventoryItemID: uuid.NullUUID{UUID: f.sauceStock, Valid: true}, ConsumedPerUnit: dec(1),
	})
	f.cat.PutSlot(catalog.ModifierSlot{
		ID: f.saucesSlot, ProductID: f.wings, Label: "Sauces", ModifierCategoryID: f.sauceCat,
		MinQuantity: 1, MaxQuantity: 2,
		Options: []catalog.SlotOption{
			{ID: uuid.New(), ProductID: f.sauceA, SortOrder: 1},
			{ID: uuid.New(), ProductID: f.sauceB, PriceAdjustment: dec(5), SortOrder: 2},
		},
	})
	f.cat.PutPackage(
		catalog.Package{ID: f.combo, Name: "Combo", Price: dec(270)},
		catalog.PackageItem{ID: f.comboWings, PackageID: f.combo, ProductID: f.wings, Quantity: 1, DisplayOrder: 1},
		catalog.PackageItem{ID: f.comboFr, PackageID: f.combo, ProductID: f.fries, Quantity: 2, DisplayOrder: 2},
	)
	f.cat.PutOverride(catalog.SlotOverride{ID: uuid.New(), PackageItemID: f.comboWings, SlotID: f.saucesSlot, MinQuantity: 1, MaxQuantity: 1})

	f.inv = inventory.NewMemory(
		inventory.Item{ID: f.rawWings, Name: "RawWings", Unit: "pc", CurrentStock: dec(1000)},
		inventory.Item{ID: f.potato, Name: "Potato", Unit: "portion", CurrentStock: dec(50)},
		inventory.Item{ID: f.sauceStock, Name: "SauceB", Unit: "cup", CurrentStock: dec(2)},
	)
	f.stock = inventory.NewStock(f.inv)
	f.c = New(f.cat, inventory.NewValidator(f.stock), nil)
	return f
}

func (f *fixture) productRef() SlotRef {
	return SlotRef{SlotID: f.saucesSlot}
}

// browsing returns a session positioned on the main category.
func (f *fixture) browsing(t *testing.T) *Session {
	t.Helper()
	s := NewSession(uuid.New())
	_, err := f.c.OpenCategory(s, f.mainCat)
	require.NoError(t, err)
	return s
}

// addWings commits one Wings-6 line with the given sauces.
func (f *fixture) addWings(t *testing.T, s *Session, qty int, sauces ...uuid.UUID) Snapshot {
	t.Helper()
	ctx := context.Background()
	_, err := f.c.BeginProduct(ctx, s, f.wings, qty)
	require.NoError(t, err)
	for i := 0; i < qty; i++ {
		for _, sc := range sauces {
			_, err := f.c.Toggle(ctx, s, i, f.productRef(), sc)
			require.NoError(t, err)
		}
	}
	snap, err := f.c.CommitConfiguration(ctx, s)
	require.NoError(t, err)
	return snap
}
