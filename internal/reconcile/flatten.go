package reconcile

import (
	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/shopspring/decimal"
)

// SubItemModifierName is the stored name of a package sub-item's modifier.
func SubItemModifierName(subItem, modifier string) string {
	return subItem + " - " + modifier
}

// Flatten converts composed lines into saved items. Package lines get one
// content row per sub-item followed by that sub-item's modifiers, all tagged
// with the package item id.
func Flatten(order composer.Order) []Item {
	items := make([]Item, 0, len(order.Items))
	for _, it := range order.Items {
		saved := Item{
			ID:             it.RefID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			Price:          it.BasePrice,
			TotalItemPrice: it.TotalPrice,
			Components:     []Component{},
		}
		if it.IsPackage() {
			for _, sub := range it.SubItems {
				pi := sub.PackageItemID
				pid := sub.ProductID
				saved.Components = append(saved.Components, Component{
					Name:          sub.Name,
					SlotLabel:     enum.SlotLabelPackageContent,
					ProductID:     &pid,
					PackageItemID: &pi,
					Quantity:      sub.Quantity,
				})
				for _, m := range sub.Modifiers {
					c := component(m)
					c.Name = SubItemModifierName(sub.Name, m.Name)
					c.PackageItemID = &pi
					saved.Components = append(saved.Components, c)
				}
			}
		} else {
			for _, m := range it.Modifiers {
				saved.Components = append(saved.Components, component(m))
			}
		}
		items = append(items, saved)
	}
	return items
}

func component(m composer.SelectedModifier) Component {
	c := Component{
		Name:          m.Name,
		SlotLabel:     m.SlotLabel,
		PriceModifier: ptrDecimal(m.PriceModifier),
		ServingStyle:  m.ServingStyle,
	}
	if m.ProductID != uuid.Nil {
		id := m.ProductID
		c.ProductID = &id
	}
	if m.SlotID != uuid.Nil {
		id := m.SlotID
		c.SlotID = &id
	}
	if !m.ExtraCost.IsZero() {
		c.ExtraCost = ptrDecimal(m.ExtraCost)
	}
	return c
}

func ptrDecimal(d decimal.Decimal) *decimal.Decimal {
	return &d
}
