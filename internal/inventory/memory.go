package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Batcher used by demos and tests. FailOn makes the
// next batch touching that item fail after earlier items were staged.
type Memory struct {
	mu     sync.Mutex
	items  map[uuid.UUID]Item
	FailOn uuid.UUID
}

var _ Batcher = (*Memory)(nil)

func NewMemory(items ...Item) *Memory {
	m := &Memory{items: make(map[uuid.UUID]Item, len(items))}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *Memory) Items(context.Context) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Level(id uuid.UUID) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].CurrentStock
}

// ApplyBatch stages every delta on a copy and only publishes the copy when
// all of them succeed.
func (m *Memory) ApplyBatch(_ context.Context, deltas Deltas) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[uuid.UUID]Item, len(deltas))
	var updated []Item
	for _, id := range deltas.NonZero().Keys() {
		if id == m.FailOn {
			return nil, fmt.Errorf("adjust stock %s: injected failure", id)
		}
		it, ok := m.items[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		next := it.CurrentStock.Add(deltas[id])
		if next.IsNegative() {
			return nil, fmt.Errorf("%w: %s has %s, delta %s", ErrStockUnderflow, it.Name, it.CurrentStock, deltas[id])
		}
		it.CurrentStock = next
		staged[id] = it
		updated = append(updated, it)
	}
	for id, it := range staged {
		m.items[id] = it
	}
	return updated, nil
}
