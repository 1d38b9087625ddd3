package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Gateway used by demos and tests. It counts calls so
// callers can observe caching.
type Memory struct {
	mu           sync.Mutex
	products     map[uuid.UUID]Product
	packages     map[uuid.UUID]Package
	packageItems map[uuid.UUID][]PackageItem
	slots        map[uuid.UUID][]ModifierSlot
	overrides    map[uuid.UUID][]SlotOverride
	styles       map[uuid.UUID][]ServingStyle

	Calls int
}

var _ Gateway = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		products:     make(map[uuid.UUID]Product),
		packages:     make(map[uuid.UUID]Package),
		packageItems: make(map[uuid.UUID][]PackageItem),
		slots:        make(map[uuid.UUID][]ModifierSlot),
		overrides:    make(map[uuid.UUID][]SlotOverride),
		styles:       make(map[uuid.UUID][]ServingStyle),
	}
}

func (m *Memory) PutProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *Memory) DeleteProduct(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

func (m *Memory) PutPackage(p Package, items ...PackageItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[p.ID] = p
	m.packageItems[p.ID] = items
}

func (m *Memory) DeletePackage(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.packages, id)
	delete(m.packageItems, id)
}

func (m *Memory) PutSlot(s ModifierSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.slots[s.ProductID]
	for i := range list {
		if list[i].ID == s.ID {
			list[i] = s
			return
		}
	}
	m.slots[s.ProductID] = append(list, s)
}

func (m *Memory) PutOverride(o SlotOverride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.overrides[o.PackageItemID]
	for i := range list {
		if list[i].SlotID == o.SlotID {
			list[i] = o
			return
		}
	}
	m.overrides[o.PackageItemID] = append(list, o)
}

func (m *Memory) PutServingStyle(s ServingStyle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.styles[s.CategoryID] = append(m.styles[s.CategoryID], s)
}

func (m *Memory) GetProduct(_ context.Context, id uuid.UUID) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	p, ok := m.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, nil
}

func (m *Memory) GetPackage(_ context.Context, id uuid.UUID) (Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	p, ok := m.packages[id]
	if !ok {
		return Package{}, fmt.Errorf("%w: %s", ErrPackageNotFound, id)
	}
	return p, nil
}

func (m *Memory) ListPackageItems(_ context.Context, packageID uuid.UUID) ([]PackageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	items := append([]PackageItem(nil), m.packageItems[packageID]...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].DisplayOrder < items[j].DisplayOrder })
	return items, nil
}

func (m *Memory) ListSlots(_ context.Context, productID uuid.UUID) ([]ModifierSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	slots := cloneSlots(m.slots[productID])
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].SortOrder < slots[j].SortOrder })
	return slots, nil
}

func (m *Memory) ListOverrides(_ context.Context, packageItemID uuid.UUID) ([]SlotOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return append([]SlotOverride(nil), m.overrides[packageItemID]...), nil
}

func (m *Memory) ListProductsByCategory(_ context.Context, categoryID uuid.UUID) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	var out []Product
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListServingStyles(_ context.Context, categoryID uuid.UUID) ([]ServingStyle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return append([]ServingStyle(nil), m.styles[categoryID]...), nil
}
