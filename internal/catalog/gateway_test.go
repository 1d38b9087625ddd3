package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/orderengine/internal/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	getProductFn   func(ctx context.Context, id uuid.UUID) (database.Product, error)
	getPackageFn   func(ctx context.Context, id uuid.UUID) (database.Package, error)
	listSlotsFn    func(ctx context.Context, productID uuid.UUID) ([]database.ModifierSlot, error)
	listOptionsFn  func(ctx context.Context, productID uuid.UUID) ([]database.SlotOption, error)
	listProductsFn func(ctx context.Context, categoryID uuid.UUID) ([]database.Product, error)
}

func (m *mockStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProductFn(ctx, id)
}

func (m *mockStore) ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]database.Product, error) {
	return m.listProductsFn(ctx, categoryID)
}

func (m *mockStore) ListModifierSlotsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ModifierSlot, error) {
	return m.listSlotsFn(ctx, productID)
}

func (m *mockStore) ListSlotOptionsByProduct(ctx context.Context, productID uuid.UUID) ([]database.SlotOption, error) {
	return m.listOptionsFn(ctx, productID)
}

func (m *mockStore) ListServingStylesByCategory(context.Context, uuid.UUID) ([]database.ServingStyle, error) {
	return nil, nil
}

func (m *mockStore) GetPackage(ctx context.Context, id uuid.UUID) (database.Package, error) {
	return m.getPackageFn(ctx, id)
}

func (m *mockStore) ListPackageItems(context.Context, uuid.UUID) ([]database.PackageItem, error) {
	return nil, nil
}

func (m *mockStore) ListOverridesByPackageItem(context.Context, uuid.UUID) ([]database.PackageItemSlotOverride, error) {
	return nil, nil
}

func TestStoreGateway_GetProduct(t *testing.T) {
	id, inv := uuid.New(), uuid.New()
	store := &mockStore{
		getProductFn: func(_ context.Context, got uuid.UUID) (database.Product, error) {
			return database.Product{
				ID:              got,
				Name:            "Wings-6",
				Price:           database.Numeric(decimal.NewFromInt(95)),
				InventoryItemID: pgtype.UUID{Bytes: inv, Valid: true},
				ConsumedPerUnit: database.Numeric(decimal.NewFromInt(6)),
				IsActive:        true,
			}, nil
		},
	}

	p, err := NewStoreGateway(store).GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(95)))
	assert.Equal(t, inv, p.InventoryItemID.UUID)
	assert.True(t, p.TracksStock())
}

func TestStoreGateway_NotFound(t *testing.T) {
	store := &mockStore{
		getProductFn: func(context.Context, uuid.UUID) (database.Product, error) {
			return database.Product{}, pgx.ErrNoRows
		},
		getPackageFn: func(context.Context, uuid.UUID) (database.Package, error) {
			return database.Package{}, pgx.ErrNoRows
		},
	}
	gw := NewStoreGateway(store)

	_, err := gw.GetProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = gw.GetPackage(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPackageNotFound)
}

func TestStoreGateway_DatabaseError(t *testing.T) {
	boom := errors.New("connection reset")
	store := &mockStore{
		getProductFn: func(context.Context, uuid.UUID) (database.Product, error) {
			return database.Product{}, boom
		},
	}

	_, err := NewStoreGateway(store).GetProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestStoreGateway_ListSlotsNestsOptions(t *testing.T) {
	productID, slotA, slotB := uuid.New(), uuid.New(), uuid.New()
	store := &mockStore{
		listSlotsFn: func(context.Context, uuid.UUID) ([]database.ModifierSlot, error) {
			return []database.ModifierSlot{
				{ID: slotA, ProductID: productID, Label: "Sauces", MinQuantity: 1, MaxQuantity: 2},
				{ID: slotB, ProductID: productID, Label: "Dips", MaxQuantity: 1, SortOrder: 1},
			}, nil
		},
		listOptionsFn: func(context.Context, uuid.UUID) ([]database.SlotOption, error) {
			return []database.SlotOption{
				{ID: uuid.New(), SlotID: slotA, ProductID: uuid.New(), PriceAdjustment: database.Numeric(decimal.NewFromInt(5))},
				{ID: uuid.New(), SlotID: slotA, ProductID: uuid.New(), IsDefault: true},
			}, nil
		},
	}

	slots, err := NewStoreGateway(store).ListSlots(context.Background(), productID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Len(t, slots[0].Options, 2)
	assert.True(t, slots[0].Options[0].PriceAdjustment.Equal(decimal.NewFromInt(5)))
	assert.True(t, slots[0].Options[1].PriceAdjustment.IsZero())
	assert.Empty(t, slots[1].Options)
}
