package composer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/shopspring/decimal"
)

// SlotRef addresses a slot of the configured item. PackageItemID is uuid.Nil
// when a simple product is configured.
type SlotRef struct {
	PackageItemID uuid.UUID `json:"package_item_id"`
	SlotID        uuid.UUID `json:"slot_id"`
}

// StockCheck validates the stock the pending configuration would draw.
type StockCheck func(ctx context.Context, usages []inventory.Usage) error

type part struct {
	item    catalog.PackageItem
	product catalog.Product
	slots   []catalog.ResolvedSlot
}

type selection map[SlotRef][]SelectedModifier

func (s selection) clone() selection {
	out := make(selection, len(s))
	for ref, mods := range s {
		out[ref] = append([]SelectedModifier(nil), mods...)
	}
	return out
}

// Configurator keeps one independent selection set per instance of the
// product or package being added.
type Configurator struct {
	kind      string
	refID     uuid.UUID
	name      string
	basePrice decimal.Decimal
	product   catalog.Product
	// parts holds one entry for a product (PackageItemID uuid.Nil) or one
	// per package item.
	parts []part

	instances []selection
	active    int
}

func NewProductConfigurator(p catalog.Product, slots []catalog.ResolvedSlot, count int) *Configurator {
	c := &Configurator{
		kind:      enum.ItemKindProduct,
		refID:     p.ID,
		name:      p.Name,
		basePrice: p.Price,
		product:   p,
		parts:     []part{{product: p, slots: slots}},
	}
	c.grow(max(count, 1))
	return c
}

func NewPackageConfigurator(pkg catalog.Package, items []catalog.ResolvedPackageItem, count int) *Configurator {
	c := &Configurator{
		kind:      enum.ItemKindPackage,
		refID:     pkg.ID,
		name:      pkg.Name,
		basePrice: pkg.Price,
	}
	for _, it := range items {
		c.parts = append(c.parts, part{item: it.Item, product: it.Product, slots: it.Slots})
	}
	c.grow(max(count, 1))
	return c
}

func (c *Configurator) Kind() string { return c.kind }
func (c *Configurator) Count() int   { return len(c.instances) }
func (c *Configurator) Active() int  { return c.active }

func (c *Configurator) grow(n int) {
	for len(c.instances) < n {
		c.instances = append(c.instances, c.defaults())
	}
}

// defaults preselects every default option up to the slot's max.
func (c *Configurator) defaults() selection {
	sel := make(selection)
	for _, p := range c.parts {
		for _, s := range p.slots {
			for _, o := range s.Defaults() {
				ref := SlotRef{PackageItemID: p.item.ID, SlotID: s.ID}
				sel[ref] = append(sel[ref], newSelected(s, o))
			}
		}
	}
	return sel
}

func newSelected(s catalog.ResolvedSlot, o catalog.ResolvedOption) SelectedModifier {
	m := SelectedModifier{
		ProductID:       o.Product.ID,
		Name:            o.Product.Name,
		SlotID:          s.ID,
		SlotLabel:       s.Label,
		CategoryID:      o.Product.CategoryID,
		InventoryItemID: o.Product.InventoryItemID,
		ConsumedPerUnit: o.Product.ConsumedPerUnit,
	}
	m.PriceModifier = o.EffectivePrice
	m.ExtraCost = decimal.Zero
	return m
}

// SetInstanceCount grows or shrinks the instance list. Surviving instances
// keep their selections and the active index is clamped to the new last one.
func (c *Configurator) SetInstanceCount(n int) error {
	if n < 1 || n > MaxInstances {
		return ErrInvalidQuantity
	}
	if n < len(c.instances) {
		c.instances = c.instances[:n]
	}
	c.grow(n)
	if c.active >= n {
		c.active = n - 1
	}
	return nil
}

func (c *Configurator) SetActive(i int) error {
	if i < 0 || i >= len(c.instances) {
		return ErrInstanceOutOfRange
	}
	c.active = i
	return nil
}

func (c *Configurator) slot(ref SlotRef) (catalog.ResolvedSlot, bool) {
	for _, p := range c.parts {
		if p.item.ID != ref.PackageItemID {
			continue
		}
		for _, s := range p.slots {
			if s.ID == ref.SlotID {
				return s, true
			}
		}
	}
	return catalog.ResolvedSlot{}, false
}

// Toggle selects or deselects an option for one instance. Selecting fails
// with ErrSlotFull at the slot's max and with the check's error when stock
// would not cover the configuration plus one more unit of the option.
// Deselecting never checks anything. It reports whether the option is now
// selected.
func (c *Configurator) Toggle(ctx context.Context, instance int, ref SlotRef, productID uuid.UUID, check StockCheck) (bool, error) {
	if instance < 0 || instance >= len(c.instances) {
		return false, ErrInstanceOutOfRange
	}
	slot, ok := c.slot(ref)
	if !ok {
		return false, ErrUnknownSlot
	}
	sel := c.instances[instance]
	mods := sel[ref]
	for i, m := range mods {
		if m.ProductID == productID {
			sel[ref] = append(mods[:i:i], mods[i+1:]...)
			return false, nil
		}
	}

	opt, ok := slot.Option(productID)
	if !ok {
		return false, ErrUnknownOption
	}
	if int32(len(mods)) >= slot.MaxQuantity {
		return false, fmt.Errorf("%w: %q allows at most %d", ErrSlotFull, slot.Label, slot.MaxQuantity)
	}
	next := newSelected(slot, opt)
	if check != nil && opt.Product.TracksStock() {
		usages := append(c.usages(), inventory.Usage{
			InventoryItemID: opt.Product.InventoryItemID.UUID,
			PerUnit:         opt.Product.ConsumedPerUnit,
			Units:           1,
			Line:            instance,
			Label:           opt.Product.Name,
		})
		if err := check(ctx, usages); err != nil {
			return false, err
		}
	}
	sel[ref] = append(mods, next)
	return true, nil
}

// ApplyCurrentToAll copies the active instance's selections over every other
// instance.
func (c *Configurator) ApplyCurrentToAll() {
	src := c.instances[c.active]
	for i := range c.instances {
		if i != c.active {
			c.instances[i] = src.clone()
		}
	}
}

func (c *Configurator) selected(instance int, ref ModifierRef) (*SelectedModifier, error) {
	if instance < 0 || instance >= len(c.instances) {
		return nil, ErrInstanceOutOfRange
	}
	mods := c.instances[instance][SlotRef{PackageItemID: ref.PackageItemID, SlotID: ref.SlotID}]
	for i := range mods {
		if mods[i].ProductID == ref.ProductID {
			return &mods[i], nil
		}
	}
	return nil, ErrModifierNotSelected
}

func (c *Configurator) SetServingStyle(instance int, ref ModifierRef, style string) error {
	m, err := c.selected(instance, ref)
	if err != nil {
		return err
	}
	m.ServingStyle = style
	return nil
}

func (c *Configurator) SetExtraCost(instance int, ref ModifierRef, cost decimal.Decimal) error {
	if cost.IsNegative() {
		return ErrInvalidExtraCost
	}
	m, err := c.selected(instance, ref)
	if err != nil {
		return err
	}
	m.ExtraCost = cost
	return nil
}

// Validate checks every slot of every instance against its effective bounds.
func (c *Configurator) Validate() error {
	for i, sel := range c.instances {
		for _, p := range c.parts {
			for _, s := range p.slots {
				n := len(sel[SlotRef{PackageItemID: p.item.ID, SlotID: s.ID}])
				if int32(n) >= s.MinQuantity && int32(n) <= s.MaxQuantity {
					continue
				}
				e := &SlotBoundsError{Slot: s.Label, Instance: i + 1, Selected: n, Min: s.MinQuantity, Max: s.MaxQuantity}
				if c.kind == enum.ItemKindPackage {
					e.Item = p.product.Name
				}
				return e
			}
		}
	}
	return nil
}

// line builds the order line for one instance with quantity 1.
func (c *Configurator) line(sel selection) OrderItem {
	it := OrderItem{
		ID:        uuid.New(),
		Kind:      c.kind,
		RefID:     c.refID,
		Name:      c.name,
		Quantity:  1,
		BasePrice: c.basePrice,
	}
	if c.kind == enum.ItemKindProduct {
		it.InventoryItemID = c.product.InventoryItemID
		it.ConsumedPerUnit = c.product.ConsumedPerUnit
		it.Modifiers = c.ordered(sel, c.parts[0])
		return it
	}
	for _, p := range c.parts {
		it.SubItems = append(it.SubItems, PackageSubItem{
			PackageItemID:   p.item.ID,
			ProductID:       p.product.ID,
			Name:            p.product.Name,
			Quantity:        p.item.Quantity,
			InventoryItemID: p.product.InventoryItemID,
			ConsumedPerUnit: p.product.ConsumedPerUnit,
			Modifiers:       c.ordered(sel, p),
		})
	}
	return it
}

// ordered lists a part's selections in slot order, then selection order.
func (c *Configurator) ordered(sel selection, p part) []SelectedModifier {
	var out []SelectedModifier
	for _, s := range p.slots {
		out = append(out, sel[SlotRef{PackageItemID: p.item.ID, SlotID: s.ID}]...)
	}
	return out
}

// Lines groups identical instances into order lines, in order of first
// appearance, and prices each line.
func (c *Configurator) Lines() []OrderItem {
	var lines []OrderItem
	index := make(map[string]int)
	for _, sel := range c.instances {
		key := c.key(sel)
		if i, ok := index[key]; ok {
			lines[i].Quantity++
			continue
		}
		index[key] = len(lines)
		lines = append(lines, c.line(sel))
	}
	for i := range lines {
		lines[i].Recalculate()
	}
	return lines
}

func (c *Configurator) key(sel selection) string {
	var parts []string
	for ref, mods := range sel {
		for _, m := range mods {
			parts = append(parts, fmt.Sprintf("%s/%s/%s/%s/%s", ref.PackageItemID, ref.SlotID, m.ProductID, m.ServingStyle, m.ExtraCost))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// usages is the stock every instance would draw if committed now, one line
// per instance.
func (c *Configurator) usages() []inventory.Usage {
	var out []inventory.Usage
	for i, sel := range c.instances {
		out = append(out, inventory.OnLine(c.line(sel).Usages(), i)...)
	}
	return out
}

// InstanceView is one instance's selections and price.
type InstanceView struct {
	Index      int                `json:"index"`
	Selections []SelectedModifier `json:"selections"`
	Price      decimal.Decimal    `json:"price"`
}

// PartView is a configurable part: the product itself or one package item.
type PartView struct {
	PackageItemID uuid.UUID              `json:"package_item_id"`
	ProductID     uuid.UUID              `json:"product_id"`
	Name          string                 `json:"name"`
	Quantity      int32                  `json:"quantity"`
	Slots         []catalog.ResolvedSlot `json:"slots"`
}

// ConfigView is a detached copy of the configurator state.
type ConfigView struct {
	Kind      string          `json:"kind"`
	RefID     uuid.UUID       `json:"ref_id"`
	Name      string          `json:"name"`
	BasePrice decimal.Decimal `json:"base_price"`
	Count     int             `json:"count"`
	Active    int             `json:"active"`
	Parts     []PartView      `json:"parts"`
	Instances []InstanceView  `json:"instances"`
}

func (c *Configurator) View() ConfigView {
	v := ConfigView{
		Kind:      c.kind,
		RefID:     c.refID,
		Name:      c.name,
		BasePrice: c.basePrice,
		Count:     len(c.instances),
		Active:    c.active,
	}
	for _, p := range c.parts {
		slots := make([]catalog.ResolvedSlot, len(p.slots))
		for i, s := range p.slots {
			slots[i] = s
			slots[i].Options = append([]catalog.ResolvedOption(nil), s.Options...)
		}
		qty := p.item.Quantity
		if c.kind == enum.ItemKindProduct {
			qty = 1
		}
		v.Parts = append(v.Parts, PartView{
			PackageItemID: p.item.ID,
			ProductID:     p.product.ID,
			Name:          p.product.Name,
			Quantity:      qty,
			Slots:         slots,
		})
	}
	for i, sel := range c.instances {
		line := c.line(sel)
		var mods []SelectedModifier
		if line.IsPackage() {
			for _, s := range line.SubItems {
				mods = append(mods, s.Modifiers...)
			}
		} else {
			mods = line.Modifiers
		}
		v.Instances = append(v.Instances, InstanceView{Index: i, Selections: mods, Price: line.UnitPrice()})
	}
	return v
}
