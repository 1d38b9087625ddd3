package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRequired_AggregatesSharedItems(t *testing.T) {
	wings, sauce := uuid.New(), uuid.New()
	req := Required([]Usage{
		{InventoryItemID: wings, PerUnit: dec(6), Units: 2},
		{InventoryItemID: wings, PerUnit: dec(6), Units: 1},
		{InventoryItemID: sauce, PerUnit: dec(1), Units: 3},
		{InventoryItemID: uuid.Nil, PerUnit: dec(5), Units: 1},
		{InventoryItemID: sauce, PerUnit: decimal.Zero, Units: 4},
	})
	require.Len(t, req, 2)
	assert.True(t, req[wings].Equal(dec(18)))
	assert.True(t, req[sauce].Equal(dec(3)))
}

func TestConsumeDeltas_Negative(t *testing.T) {
	wings := uuid.New()
	d := ConsumeDeltas([]Usage{{InventoryItemID: wings, PerUnit: dec(6), Units: 1}})
	assert.True(t, d[wings].Equal(dec(-6)))
}

func TestEditDeltas_MergesRestoreAndConsume(t *testing.T) {
	wings, fries, sauce := uuid.New(), uuid.New(), uuid.New()
	previous := Deltas{wings: dec(12), fries: dec(1)}
	next := []Usage{
		{InventoryItemID: wings, PerUnit: dec(6), Units: 3},
		{InventoryItemID: fries, PerUnit: dec(1), Units: 1},
		{InventoryItemID: sauce, PerUnit: dec(1), Units: 1},
	}

	d := EditDeltas(previous, next)
	assert.True(t, d[wings].Equal(dec(-6)))
	_, hasFries := d[fries]
	assert.False(t, hasFries, "fries cancelled out")
	assert.True(t, d[sauce].Equal(dec(-1)))
}

func TestRestockDeltas_RoundTrip(t *testing.T) {
	wings := uuid.New()
	usages := []Usage{{InventoryItemID: wings, PerUnit: dec(6), Units: 2}}
	consumed := ConsumeDeltas(usages)
	restock := RestockDeltas(Required(usages))
	assert.True(t, consumed.Merge(restock)[wings].IsZero())
}

func TestDeltas_KeysSorted(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	c := uuid.MustParse("10000000-0000-0000-0000-000000000000")
	d := Deltas{c: dec(1), a: dec(1), b: dec(1)}
	assert.Equal(t, []uuid.UUID{a, b, c}, d.Keys())
}
