package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposer_WingsWithSauceB(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)

	snap := f.addWings(t, s, 1, f.sauceB)

	assert.Equal(t, StateProducts, snap.State)
	require.Len(t, snap.Order.Items, 1)
	assert.True(t, snap.Order.Items[0].TotalPrice.Equal(dec(100)))
	assert.True(t, snap.Total.Equal(dec(100)))
	assert.Nil(t, snap.Configuration)
}

func TestComposer_CommitRejectsMissingSauce(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()

	_, err := f.c.BeginProduct(ctx, s, f.wings, 1)
	require.NoError(t, err)

	snap, err := f.c.CommitConfiguration(ctx, s)
	var bounds *SlotBoundsError
	require.True(t, errors.As(err, &bounds))
	assert.Equal(t, "Sauces", bounds.Slot)
	assert.Equal(t, StateConfiguringProduct, snap.State)
	assert.Empty(t, snap.Order.Items)
}

func TestComposer_PackageOverrideRejectsSecondSauce(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()
	ref := SlotRef{PackageItemID: f.comboWings, SlotID: f.saucesSlot}

	_, err := f.c.BeginPackage(ctx, s, f.combo, 1)
	require.NoError(t, err)
	_, err = f.c.Toggle(ctx, s, 0, ref, f.sauceA)
	require.NoError(t, err)

	snap, err := f.c.Toggle(ctx, s, 0, ref, f.sauceB)
	require.ErrorIs(t, err, ErrSlotFull)
	require.NotNil(t, snap.Configuration)
	assert.Len(t, snap.Configuration.Instances[0].Selections, 1)

	// The same product on its own still takes two.
	_, err = f.c.CancelConfiguration(s)
	require.NoError(t, err)
	f.addWings(t, s, 1, f.sauceA, f.sauceB)
}

func TestComposer_PackagePricingAndGrouping(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()
	ref := SlotRef{PackageItemID: f.comboWings, SlotID: f.saucesSlot}

	_, err := f.c.BeginPackage(ctx, s, f.combo, 2)
	require.NoError(t, err)
	_, err = f.c.Toggle(ctx, s, 0, ref, f.sauceB)
	require.NoError(t, err)
	_, err = f.c.ApplyCurrentToAll(s)
	require.NoError(t, err)

	snap, err := f.c.CommitConfiguration(ctx, s)
	require.NoError(t, err)
	require.Len(t, snap.Order.Items, 1)

	line := snap.Order.Items[0]
	assert.Equal(t, enum.ItemKindPackage, line.Kind)
	assert.EqualValues(t, 2, line.Quantity)
	assert.True(t, line.TotalPrice.Equal(dec(550)), "got %s", line.TotalPrice)
	require.Len(t, line.SubItems, 2)
	assert.Equal(t, "Wings-6", line.SubItems[0].Name)
	require.Len(t, line.SubItems[0].Modifiers, 1)

	req := inventory.Required(line.Usages())
	assert.True(t, req[f.rawWings].Equal(dec(12)))
	assert.True(t, req[f.potato].Equal(dec(4)), "fries quantity 2 per package")
	assert.True(t, req[f.sauceStock].Equal(dec(2)))
}

func TestComposer_ToggleBlockedByStock(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()

	_, err := f.c.BeginProduct(ctx, s, f.wings, 3)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = f.c.Toggle(ctx, s, i, f.productRef(), f.sauceB)
		require.NoError(t, err)
	}

	_, err = f.c.Toggle(ctx, s, 2, f.productRef(), f.sauceB)
	var stockErr *inventory.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "SauceB", stockErr.ItemName)
	assert.EqualValues(t, 2, stockErr.MaxUnits, "two of the three instances fit")

	// Deselecting is never blocked.
	_, err = f.c.Toggle(ctx, s, 0, f.productRef(), f.sauceB)
	require.NoError(t, err)
	_, err = f.c.Toggle(ctx, s, 2, f.productRef(), f.sauceB)
	require.NoError(t, err)
}

func TestComposer_StockMaxUnitsAcrossDistinctLines(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()
	require.NoError(t, f.stock.Refresh(ctx))
	f.stock.Update(inventory.Item{ID: f.rawWings, Name: "RawWings", Unit: "pc", CurrentStock: dec(10)})

	_, err := f.c.BeginProduct(ctx, s, f.wings, 2)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = f.c.Toggle(ctx, s, i, f.productRef(), f.sauceA)
		require.NoError(t, err)
	}
	// A different serving style keeps the two instances on separate lines.
	_, err = f.c.SetInstanceServingStyle(s, 1, ModifierRef{SlotID: f.saucesSlot, ProductID: f.sauceA}, "on the side")
	require.NoError(t, err)

	_, err = f.c.CommitConfiguration(ctx, s)
	var stockErr *inventory.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.True(t, stockErr.Required.Equal(dec(12)))
	assert.EqualValues(t, 1, stockErr.MaxUnits)
}

func TestComposer_QuantityUpperBound(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()

	_, err := f.c.BeginProduct(ctx, s, f.wings, MaxInstances+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.c.BeginPackage(ctx, s, f.combo, 3_000_000)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.c.BeginProduct(ctx, s, f.wings, 1)
	require.NoError(t, err)
	snap, err := f.c.SetInstanceCount(s, MaxInstances+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 1, snap.Configuration.Count)

	_, err = f.c.Toggle(ctx, s, 0, f.productRef(), f.sauceA)
	require.NoError(t, err)
	_, err = f.c.CommitConfiguration(ctx, s)
	require.NoError(t, err)

	snap, err = f.c.SetItemQuantity(ctx, s, 0, MaxInstances+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.EqualValues(t, 1, snap.Order.Items[0].Quantity)
}

func TestComposer_StockCountsLinesAlreadyInOrder(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()

	f.addWings(t, s, 2, f.sauceB)

	_, err := f.c.BeginProduct(ctx, s, f.wings, 1)
	require.NoError(t, err)
	_, err = f.c.Toggle(ctx, s, 0, f.productRef(), f.sauceB)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestComposer_ExtraCostChangesLineByDeltaTimesQuantity(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()

	_, err := f.c.BeginProduct(ctx, s, f.wings, 3)
	require.NoError(t, err)
	_, err = f.c.Toggle(ctx, s, 0, f.productRef(), f.sauceA)
	require.NoError(t, err)
	_, err = f.c.ApplyCurrentToAll(s)
	require.NoError(t, err)
	before, err := f.c.CommitConfiguration(ctx, s)
	require.NoError(t, err)

	ref := ModifierRef{SlotID: f.saucesSlot, ProductID: f.sauceA}
	after, err := f.c.SetExtraCost(s, 0, ref, dec(4))
	require.NoError(t, err)

	delta := after.Order.Items[0].TotalPrice.Sub(before.Order.Items[0].TotalPrice)
	assert.True(t, delta.Equal(dec(12)), "got %s", delta)
	assert.True(t, after.Total.Equal(before.Total.Add(dec(12))))

	after, err = f.c.SetServingStyle(s, 0, ref, "Tossed")
	require.NoError(t, err)
	assert.Equal(t, "Tossed", after.Order.Items[0].Modifiers[0].ServingStyle)

	_, err = f.c.SetExtraCost(s, 0, ModifierRef{SlotID: f.saucesSlot, ProductID: f.sauceB}, dec(1))
	assert.ErrorIs(t, err, ErrModifierNotSelected)
}

func TestComposer_RemoveLeavesStockUntouched(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)

	f.addWings(t, s, 1, f.sauceA)
	snap, err := f.c.RemoveItem(s, 0)
	require.NoError(t, err)

	assert.Empty(t, snap.Order.Items)
	assert.True(t, f.inv.Level(f.rawWings).Equal(dec(1000)))

	_, err = f.c.RemoveItem(s, 0)
	assert.ErrorIs(t, err, ErrItemOutOfRange)
}

func TestComposer_SetItemQuantity(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()

	f.addWings(t, s, 1, f.sauceB)

	snap, err := f.c.SetItemQuantity(ctx, s, 0, 2)
	require.NoError(t, err)
	assert.True(t, snap.Order.Items[0].TotalPrice.Equal(dec(200)))

	// SauceB stock is 2.
	snap, err = f.c.SetItemQuantity(ctx, s, 0, 3)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.EqualValues(t, 2, snap.Order.Items[0].Quantity)

	_, err = f.c.SetItemQuantity(ctx, s, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestComposer_IllegalTransitions(t *testing.T) {
	f := newFixture(t)
	s := NewSession(uuid.New())
	ctx := context.Background()

	_, err := f.c.BeginProduct(ctx, s, f.wings, 1)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = f.c.Toggle(ctx, s, 0, f.productRef(), f.sauceA)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = f.c.CommitConfiguration(ctx, s)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.c.OpenCategory(s, f.mainCat)
	require.NoError(t, err)
	_, err = f.c.BeginProduct(ctx, s, f.wings, 1)
	require.NoError(t, err)
	_, err = f.c.OpenCategory(s, f.sauceCat)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	snap, err := f.c.Back(s)
	require.NoError(t, err)
	assert.Equal(t, StateProducts, snap.State)
	snap, err = f.c.Back(s)
	require.NoError(t, err)
	assert.Equal(t, StateCategories, snap.State)
	assert.Nil(t, snap.CategoryID)
}

func TestComposer_BeginUnknownProduct(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)

	snap, err := f.c.BeginProduct(context.Background(), s, uuid.New(), 1)
	assert.Error(t, err)
	assert.Equal(t, StateProducts, snap.State)
}

func TestComposer_SnapshotIsDetached(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)

	snap := f.addWings(t, s, 1, f.sauceB)
	snap.Order.Items[0].Modifiers[0].ExtraCost = dec(50)
	snap.Order.Items[0].Quantity = 9

	again := s.Snapshot()
	assert.True(t, again.Order.Items[0].Modifiers[0].ExtraCost.IsZero())
	assert.EqualValues(t, 1, again.Order.Items[0].Quantity)
	assert.Greater(t, again.Version, 0)
}

func TestComposer_Finalize(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)
	ctx := context.Background()

	_, err := f.c.Finalize(ctx, s, func(context.Context, Order, *EditContext) error { return nil })
	require.ErrorIs(t, err, ErrEmptyOrder)

	f.addWings(t, s, 1, f.sauceB)

	boom := errors.New("db down")
	snap, err := f.c.Finalize(ctx, s, func(context.Context, Order, *EditContext) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateProducts, snap.State)

	var persisted Order
	snap, err = f.c.Finalize(ctx, s, func(_ context.Context, o Order, edit *EditContext) error {
		persisted = o
		assert.Nil(t, edit)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateFinalized, snap.State)
	assert.True(t, persisted.Total().Equal(dec(100)))
	assert.Equal(t, enum.PaymentMethodCash, persisted.PaymentMethod)

	_, err = f.c.RemoveItem(s, 0)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestComposer_EditCreditCountsAsAvailable(t *testing.T) {
	f := newFixture(t)
	_, err := f.inv.ApplyBatch(context.Background(), inventory.Deltas{f.sauceStock: dec(-2)})
	require.NoError(t, err)

	saved := Order{PaymentMethod: enum.PaymentMethodCard}
	s := NewEditSession(uuid.New(), saved, EditContext{
		OrderID:  uuid.New(),
		Consumed: inventory.Deltas{f.sauceStock: dec(2), f.rawWings: dec(12)},
	})
	_, err = f.c.OpenCategory(s, f.mainCat)
	require.NoError(t, err)

	snap := f.addWings(t, s, 2, f.sauceB)
	require.Len(t, snap.Order.Items, 1)
	require.NotNil(t, snap.Editing)
	assert.Equal(t, enum.PaymentMethodCard, snap.Order.PaymentMethod)
}

func TestComposer_SetCustomer(t *testing.T) {
	f := newFixture(t)
	s := f.browsing(t)

	snap, err := f.c.SetCustomer(s, "Ana", enum.PaymentMethodTransfer)
	require.NoError(t, err)
	assert.Equal(t, "Ana", snap.Order.CustomerName)
	assert.Equal(t, enum.PaymentMethodTransfer, snap.Order.PaymentMethod)

	_, err = f.c.SetCustomer(s, "Ana", "BITCOIN")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}
