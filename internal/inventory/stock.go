package inventory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Source lists every inventory item.
type Source interface {
	Items(ctx context.Context) ([]Item, error)
}

// Stock is a snapshot of inventory levels held in an arena with an id index.
// It loads lazily and is only reloaded by Refresh or patched by Update; the
// order service does one of the two after every committed adjustment.
type Stock struct {
	src Source

	mu     sync.RWMutex
	loaded bool
	items  []Item
	idx    map[uuid.UUID]int
}

var _ Lookup = (*Stock)(nil)

func NewStock(src Source) *Stock {
	return &Stock{src: src, idx: make(map[uuid.UUID]int)}
}

// Refresh reloads the snapshot from the source.
func (s *Stock) Refresh(ctx context.Context) error {
	items, err := s.src.Items(ctx)
	if err != nil {
		return err
	}
	idx := make(map[uuid.UUID]int, len(items))
	for i, it := range items {
		idx[it.ID] = i
	}
	s.mu.Lock()
	s.items, s.idx, s.loaded = items, idx, true
	s.mu.Unlock()
	return nil
}

func (s *Stock) ensure(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *Stock) Get(ctx context.Context, id uuid.UUID) (Item, bool, error) {
	if err := s.ensure(ctx); err != nil {
		return Item{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.idx[id]
	if !ok {
		return Item{}, false, nil
	}
	return s.items[i], true, nil
}

func (s *Stock) List(ctx context.Context) ([]Item, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.items...), nil
}

// Update overwrites snapshot entries with rows returned by a committed
// adjustment.
func (s *Stock) Update(items ...Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if i, ok := s.idx[it.ID]; ok {
			s.items[i] = it
			continue
		}
		s.items = append(s.items, it)
		s.idx[it.ID] = len(s.items) - 1
	}
}
