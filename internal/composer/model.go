// Package composer holds the order being composed at a terminal: its lines,
// the per-instance modifier configuration of the item being added, and the
// session state machine that drives both.
package composer

import (
	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/kiwari-pos/orderengine/internal/pricing"
	"github.com/shopspring/decimal"
)

// SelectedModifier is one chosen option. PriceModifier is fixed when the
// option is selected; ServingStyle and ExtraCost stay editable.
type SelectedModifier struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	SlotID     uuid.UUID `json:"slot_id"`
	SlotLabel  string    `json:"slot_label"`
	CategoryID uuid.UUID `json:"category_id"`
	pricing.Adjustment
	ServingStyle    string          `json:"serving_style,omitempty"`
	InventoryItemID uuid.NullUUID   `json:"inventory_item_id"`
	ConsumedPerUnit decimal.Decimal `json:"consumed_per_unit"`
}

// ModifierRef addresses a selected modifier inside a line or an instance.
// PackageItemID is uuid.Nil for simple products.
type ModifierRef struct {
	PackageItemID uuid.UUID `json:"package_item_id"`
	SlotID        uuid.UUID `json:"slot_id"`
	ProductID     uuid.UUID `json:"product_id"`
}

// PackageSubItem is one product inside a package line.
type PackageSubItem struct {
	PackageItemID   uuid.UUID          `json:"package_item_id"`
	ProductID       uuid.UUID          `json:"product_id"`
	Name            string             `json:"name"`
	Quantity        int32              `json:"quantity"`
	InventoryItemID uuid.NullUUID      `json:"inventory_item_id"`
	ConsumedPerUnit decimal.Decimal    `json:"consumed_per_unit"`
	Modifiers       []SelectedModifier `json:"modifiers"`
}

func (s PackageSubItem) adjustments() []pricing.Adjustment {
	out := make([]pricing.Adjustment, len(s.Modifiers))
	for i, m := range s.Modifiers {
		out[i] = m.Adjustment
	}
	return out
}

// OrderItem is one line of the composing order.
type OrderItem struct {
	ID              uuid.UUID          `json:"id"`
	Kind            string             `json:"kind"`
	RefID           uuid.UUID          `json:"ref_id"`
	Name            string             `json:"name"`
	Quantity        int32              `json:"quantity"`
	BasePrice       decimal.Decimal    `json:"base_price"`
	InventoryItemID uuid.NullUUID      `json:"inventory_item_id"`
	ConsumedPerUnit decimal.Decimal    `json:"consumed_per_unit"`
	Modifiers       []SelectedModifier `json:"modifiers,omitempty"`
	SubItems        []PackageSubItem   `json:"sub_items,omitempty"`
	TotalPrice      decimal.Decimal    `json:"total_price"`
}

func (it OrderItem) IsPackage() bool {
	return it.Kind == enum.ItemKindPackage
}

// UnitPrice is the price of one product instance or one package.
func (it OrderItem) UnitPrice() decimal.Decimal {
	if it.IsPackage() {
		return pricing.PackageTotal(it.BasePrice, it.subAdjustments(), 1)
	}
	adj := make([]pricing.Adjustment, len(it.Modifiers))
	for i, m := range it.Modifiers {
		adj[i] = m.Adjustment
	}
	return pricing.InstancePrice(it.BasePrice, adj...)
}

func (it OrderItem) subAdjustments() [][]pricing.Adjustment {
	out := make([][]pricing.Adjustment, len(it.SubItems))
	for i, s := range it.SubItems {
		out[i] = s.adjustments()
	}
	return out
}

// Recalculate recomputes TotalPrice from scratch.
func (it *OrderItem) Recalculate() {
	it.TotalPrice = pricing.LineTotal(it.UnitPrice(), it.Quantity)
}

// Usages lists the stock the line draws. Package sub-items consume their own
// quantity per package; modifiers consume once per product instance or per
// package.
func (it OrderItem) Usages() []inventory.Usage {
	var out []inventory.Usage
	add := func(inv uuid.NullUUID, perUnit decimal.Decimal, label string) {
		if !inv.Valid || !perUnit.IsPositive() {
			return
		}
		out = append(out, inventory.Usage{
			InventoryItemID: inv.UUID,
			PerUnit:         perUnit,
			Units:           it.Quantity,
			Label:           label,
		})
	}

	if it.IsPackage() {
		for _, s := range it.SubItems {
			add(s.InventoryItemID, s.ConsumedPerUnit.Mul(decimal.NewFromInt32(s.Quantity)), s.Name)
			for _, m := range s.Modifiers {
				add(m.InventoryItemID, m.ConsumedPerUnit, m.Name)
			}
		}
		return out
	}
	add(it.InventoryItemID, it.ConsumedPerUnit, it.Name)
	for _, m := range it.Modifiers {
		add(m.InventoryItemID, m.ConsumedPerUnit, m.Name)
	}
	return out
}

// modifier returns a pointer to the modifier addressed by ref.
func (it *OrderItem) modifier(ref ModifierRef) *SelectedModifier {
	list := it.Modifiers
	if it.IsPackage() {
		list = nil
		for i := range it.SubItems {
			if it.SubItems[i].PackageItemID == ref.PackageItemID {
				list = it.SubItems[i].Modifiers
				break
			}
		}
	}
	for i := range list {
		if list[i].ProductID == ref.ProductID && list[i].SlotID == ref.SlotID {
			return &list[i]
		}
	}
	return nil
}

func (it OrderItem) Clone() OrderItem {
	out := it
	out.Modifiers = append([]SelectedModifier(nil), it.Modifiers...)
	if it.SubItems != nil {
		out.SubItems = make([]PackageSubItem, len(it.SubItems))
		for i, s := range it.SubItems {
			out.SubItems[i] = s
			out.SubItems[i].Modifiers = append([]SelectedModifier(nil), s.Modifiers...)
		}
	}
	return out
}

// Order is the aggregate being composed. There is no tax or discount layer,
// so Total equals Subtotal.
type Order struct {
	CustomerName  string      `json:"customer_name"`
	PaymentMethod string      `json:"payment_method"`
	Items         []OrderItem `json:"items"`
}

func (o Order) Subtotal() decimal.Decimal {
	lines := make([]decimal.Decimal, len(o.Items))
	for i, it := range o.Items {
		lines[i] = it.TotalPrice
	}
	return pricing.Sum(lines...)
}

func (o Order) Total() decimal.Decimal {
	return o.Subtotal()
}

// Usages lists the stock of every line, skipping index skip (-1 for none).
func (o Order) Usages(skip int) []inventory.Usage {
	var out []inventory.Usage
	for i, it := range o.Items {
		if i == skip {
			continue
		}
		out = append(out, inventory.OnLine(it.Usages(), i)...)
	}
	return out
}

func (o Order) Clone() Order {
	out := o
	out.Items = make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		out.Items[i] = it.Clone()
	}
	return out
}
