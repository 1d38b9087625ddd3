package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStock_LazyLoadAndUpdate(t *testing.T) {
	wings := uuid.New()
	mem := NewMemory(Item{ID: wings, Name: "RawWings", CurrentStock: dec(1000)})
	s := NewStock(mem)
	ctx := context.Background()

	it, ok, err := s.Get(ctx, wings)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, it.CurrentStock.Equal(dec(1000)))

	updated, err := mem.ApplyBatch(ctx, Deltas{wings: dec(-6)})
	require.NoError(t, err)

	it, _, _ = s.Get(ctx, wings)
	assert.True(t, it.CurrentStock.Equal(dec(1000)), "snapshot until patched")

	s.Update(updated...)
	it, _, _ = s.Get(ctx, wings)
	assert.True(t, it.CurrentStock.Equal(dec(994)))
}

func TestStock_Refresh(t *testing.T) {
	wings := uuid.New()
	mem := NewMemory(Item{ID: wings, Name: "RawWings", CurrentStock: dec(10)})
	s := NewStock(mem)
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	_, err := mem.ApplyBatch(ctx, Deltas{wings: dec(5)})
	require.NoError(t, err)
	require.NoError(t, s.Refresh(ctx))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].CurrentStock.Equal(dec(15)))
}

func TestMemory_ApplyBatchIsAllOrNothing(t *testing.T) {
	a, b := uuid.MustParse("00000000-0000-0000-0000-000000000001"), uuid.MustParse("00000000-0000-0000-0000-000000000002")
	mem := NewMemory(
		Item{ID: a, Name: "A", CurrentStock: dec(10)},
		Item{ID: b, Name: "B", CurrentStock: dec(1)},
	)

	_, err := mem.ApplyBatch(context.Background(), Deltas{a: dec(-5), b: dec(-2)})
	require.ErrorIs(t, err, ErrStockUnderflow)
	assert.True(t, mem.Level(a).Equal(dec(10)))
	assert.True(t, mem.Level(b).Equal(dec(1)))
}
