package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Cache is a read-through Gateway. Products are kept in an arena slice with
// an id index; everything else is memoised per parent id. Nothing is refreshed
// implicitly: callers invalidate after catalog writes.
//
// Safe for concurrent use. Errors are never cached.
type Cache struct {
	next Gateway

	mu           sync.RWMutex
	products     []Product
	productIdx   map[uuid.UUID]int
	freeSlots    []int
	packages     map[uuid.UUID]Package
	packageItems map[uuid.UUID][]PackageItem
	slots        map[uuid.UUID][]ModifierSlot
	overrides    map[uuid.UUID][]SlotOverride
	byCategory   map[uuid.UUID][]uuid.UUID
	styles       map[uuid.UUID][]ServingStyle
}

var _ Gateway = (*Cache)(nil)

func NewCache(next Gateway) *Cache {
	c := &Cache{next: next}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.products = nil
	c.productIdx = make(map[uuid.UUID]int)
	c.freeSlots = nil
	c.packages = make(map[uuid.UUID]Package)
	c.packageItems = make(map[uuid.UUID][]PackageItem)
	c.slots = make(map[uuid.UUID][]ModifierSlot)
	c.overrides = make(map[uuid.UUID][]SlotOverride)
	c.byCategory = make(map[uuid.UUID][]uuid.UUID)
	c.styles = make(map[uuid.UUID][]ServingStyle)
}

// Invalidate drops every cached definition.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// InvalidateProduct drops a product, its slots and every category listing.
func (c *Cache) InvalidateProduct(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.productIdx[id]; ok {
		c.products[i] = Product{}
		c.freeSlots = append(c.freeSlots, i)
		delete(c.productIdx, id)
	}
	delete(c.slots, id)
	c.byCategory = make(map[uuid.UUID][]uuid.UUID)
}

// InvalidatePackage drops a package, its items and the overrides of those items.
func (c *Cache) InvalidatePackage(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.packageItems[id] {
		delete(c.overrides, it.ID)
	}
	delete(c.packageItems, id)
	delete(c.packages, id)
}

// InvalidatePackageItem drops the overrides cached for one package item.
func (c *Cache) InvalidatePackageItem(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.overrides, id)
}

// storeProduct must be called with mu held for writing. Arena slots freed by
// InvalidateProduct are reused before the arena grows.
func (c *Cache) storeProduct(p Product) {
	if i, ok := c.productIdx[p.ID]; ok {
		c.products[i] = p
		return
	}
	if n := len(c.freeSlots); n > 0 {
		i := c.freeSlots[n-1]
		c.freeSlots = c.freeSlots[:n-1]
		c.products[i] = p
		c.productIdx[p.ID] = i
		return
	}
	c.products = append(c.products, p)
	c.productIdx[p.ID] = len(c.products) - 1
}

func (c *Cache) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	c.mu.RLock()
	if i, ok := c.productIdx[id]; ok {
		p := c.products[i]
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	p, err := c.next.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	c.mu.Lock()
	c.storeProduct(p)
	c.mu.Unlock()
	return p, nil
}

func (c *Cache) GetPackage(ctx context.Context, id uuid.UUID) (Package, error) {
	c.mu.RLock()
	p, ok := c.packages[id]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := c.next.GetPackage(ctx, id)
	if err != nil {
		return Package{}, err
	}
	c.mu.Lock()
	c.packages[id] = p
	c.mu.Unlock()
	return p, nil
}

func (c *Cache) ListPackageItems(ctx context.Context, packageID uuid.UUID) ([]PackageItem, error) {
	c.mu.RLock()
	items, ok := c.packageItems[packageID]
	c.mu.RUnlock()
	if ok {
		return append([]PackageItem(nil), items...), nil
	}

	items, err := c.next.ListPackageItems(ctx, packageID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.packageItems[packageID] = append([]PackageItem(nil), items...)
	c.mu.Unlock()
	return items, nil
}

func (c *Cache) ListSlots(ctx context.Context, productID uuid.UUID) ([]ModifierSlot, error) {
	c.mu.RLock()
	slots, ok := c.slots[productID]
	c.mu.RUnlock()
	if ok {
		return cloneSlots(slots), nil
	}

	slots, err := c.next.ListSlots(ctx, productID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.slots[productID] = cloneSlots(slots)
	c.mu.Unlock()
	return slots, nil
}

func (c *Cache) ListOverrides(ctx context.Context, packageItemID uuid.UUID) ([]SlotOverride, error) {
	c.mu.RLock()
	ovs, ok := c.overrides[packageItemID]
	c.mu.RUnlock()
	if ok {
		return append([]SlotOverride(nil), ovs...), nil
	}

	ovs, err := c.next.ListOverrides(ctx, packageItemID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.overrides[packageItemID] = append([]SlotOverride(nil), ovs...)
	c.mu.Unlock()
	return ovs, nil
}

func (c *Cache) ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]Product, error) {
	c.mu.RLock()
	ids, ok := c.byCategory[categoryID]
	if ok {
		out := make([]Product, 0, len(ids))
		for _, id := range ids {
			i, found := c.productIdx[id]
			if !found {
				ok = false
				break
			}
			out = append(out, c.products[i])
		}
		if ok {
			c.mu.RUnlock()
			return out, nil
		}
	}
	c.mu.RUnlock()

	products, err := c.next.ListProductsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	ids = make([]uuid.UUID, len(products))
	c.mu.Lock()
	for i, p := range products {
		c.storeProduct(p)
		ids[i] = p.ID
	}
	c.byCategory[categoryID] = ids
	c.mu.Unlock()
	return products, nil
}

func (c *Cache) ListServingStyles(ctx context.Context, categoryID uuid.UUID) ([]ServingStyle, error) {
	c.mu.RLock()
	styles, ok := c.styles[categoryID]
	c.mu.RUnlock()
	if ok {
		return append([]ServingStyle(nil), styles...), nil
	}

	styles, err := c.next.ListServingStyles(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.styles[categoryID] = append([]ServingStyle(nil), styles...)
	c.mu.Unlock()
	return styles, nil
}
