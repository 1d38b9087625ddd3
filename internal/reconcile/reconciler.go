package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gap is a part of a saved order that could not be rebuilt. Item is the
// index of the saved item; Component is empty when the whole item was dropped.
type Gap struct {
	Item      int    `json:"item"`
	ItemName  string `json:"item_name"`
	Component string `json:"component,omitempty"`
	Reason    string `json:"reason"`
}

// Reconciler rebuilds editable orders from saved ones using the current
// catalog: names and base prices are live, saved line totals are kept until
// the operator changes the line.
type Reconciler struct {
	gw     catalog.Gateway
	logger *zap.Logger
}

func New(gw catalog.Gateway, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{gw: gw, logger: logger}
}

// IsPackage reports whether a saved item stands for a package.
func IsPackage(it Item) bool {
	for _, c := range it.Components {
		if c.SlotLabel == enum.SlotLabelPackageContent {
			return true
		}
	}
	return false
}

// Rebuild returns the editable order and every gap met on the way. Only
// gateway failures other than not-found abort it.
func (r *Reconciler) Rebuild(ctx context.Context, saved SavedOrder) (composer.Order, []Gap, error) {
	order := composer.Order{
		CustomerName:  saved.CustomerName,
		PaymentMethod: saved.PaymentMethod,
		Items:         []composer.OrderItem{},
	}
	var gaps []Gap
	for i, it := range saved.Items {
		var (
			line    composer.OrderItem
			itemGap []Gap
			err     error
		)
		if IsPackage(it) {
			line, itemGap, err = r.rebuildPackage(ctx, i, it)
		} else {
			line, err = r.rebuildProduct(ctx, it)
		}
		if errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, catalog.ErrPackageNotFound) {
			gaps = append(gaps, r.gap(saved.ID, Gap{Item: i, ItemName: it.Name, Reason: err.Error()}))
			continue
		}
		if err != nil {
			return composer.Order{}, nil, err
		}
		for _, g := range itemGap {
			gaps = append(gaps, r.gap(saved.ID, g))
		}
		order.Items = append(order.Items, line)
	}
	return order, gaps, nil
}

func (r *Reconciler) gap(orderID uuid.UUID, g Gap) Gap {
	r.logger.Warn("reconciliation gap",
		zap.String("order_id", orderID.String()),
		zap.Int("item", g.Item),
		zap.String("item_name", g.ItemName),
		zap.String("component", g.Component),
		zap.String("reason", g.Reason),
	)
	return g
}

func (r *Reconciler) rebuildProduct(ctx context.Context, it Item) (composer.OrderItem, error) {
	p, err := r.gw.GetProduct(ctx, it.ID)
	if err != nil {
		return composer.OrderItem{}, err
	}
	line := composer.OrderItem{
		ID:              uuid.New(),
		Kind:            enum.ItemKindProduct,
		RefID:           p.ID,
		Name:            p.Name,
		Quantity:        it.Quantity,
		BasePrice:       p.Price,
		InventoryItemID: p.InventoryItemID,
		ConsumedPerUnit: p.ConsumedPerUnit,
		TotalPrice:      it.TotalItemPrice,
	}
	for _, c := range it.Components {
		m, err := r.modifier(ctx, c, c.Name)
		if err != nil {
			return composer.OrderItem{}, err
		}
		line.Modifiers = append(line.Modifiers, m)
	}
	return line, nil
}

func (r *Reconciler) rebuildPackage(ctx context.Context, idx int, it Item) (composer.OrderItem, []Gap, error) {
	pkg, err := r.gw.GetPackage(ctx, it.ID)
	if err != nil {
		return composer.OrderItem{}, nil, err
	}
	items, err := r.gw.ListPackageItems(ctx, pkg.ID)
	if err != nil {
		return composer.OrderItem{}, nil, err
	}

	var gaps []Gap
	line := composer.OrderItem{
		ID:         uuid.New(),
		Kind:       enum.ItemKindPackage,
		RefID:      pkg.ID,
		Name:       pkg.Name,
		Quantity:   it.Quantity,
		BasePrice:  pkg.Price,
		TotalPrice: it.TotalItemPrice,
	}
	for _, pi := range items {
		p, err := r.gw.GetProduct(ctx, pi.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			gaps = append(gaps, Gap{Item: idx, ItemName: it.Name, Component: pi.ProductID.String(), Reason: err.Error()})
			continue
		}
		if err != nil {
			return composer.OrderItem{}, nil, err
		}
		line.SubItems = append(line.SubItems, composer.PackageSubItem{
			PackageItemID:   pi.ID,
			ProductID:       p.ID,
			Name:            p.Name,
			Quantity:        pi.Quantity,
			InventoryItemID: p.InventoryItemID,
			ConsumedPerUnit: p.ConsumedPerUnit,
		})
	}

	for _, c := range it.Components {
		if c.SlotLabel == enum.SlotLabelPackageContent {
			continue
		}
		sub := r.matchSubItem(line.SubItems, c)
		if sub < 0 {
			gaps = append(gaps, Gap{Item: idx, ItemName: it.Name, Component: c.Name, Reason: "no matching package sub-item"})
			continue
		}
		m, err := r.modifier(ctx, c, trimSubItemPrefix(c.Name, line.SubItems[sub].Name))
		if err != nil {
			return composer.OrderItem{}, nil, err
		}
		line.SubItems[sub].Modifiers = append(line.SubItems[sub].Modifiers, m)
	}
	return line, gaps, nil
}

// matchSubItem finds the sub-item a modifier component belongs to: by its
// package item id when stored and still present, else by the longest
// sub-item name contained in the component name. It returns -1 when nothing
// matches.
func (r *Reconciler) matchSubItem(subs []composer.PackageSubItem, c Component) int {
	if c.PackageItemID != nil {
		for i, s := range subs {
			if s.PackageItemID == *c.PackageItemID {
				return i
			}
		}
	}
	best, bestLen := -1, 0
	name := strings.ToLower(c.Name)
	for i, s := range subs {
		n := strings.ToLower(s.Name)
		if n != "" && strings.Contains(name, n) && len(n) > bestLen {
			best, bestLen = i, len(n)
		}
	}
	return best
}

// trimSubItemPrefix strips the "<SubItem> - " prefix Flatten writes, folding
// case the same way matchSubItem does.
func trimSubItemPrefix(name, subItem string) string {
	prefix := SubItemModifierName(subItem, "")
	if len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
		return name[len(prefix):]
	}
	return name
}

// modifier rebuilds a selected modifier. The saved price modifier is kept;
// the inventory link comes from the live product when it still exists.
func (r *Reconciler) modifier(ctx context.Context, c Component, name string) (composer.SelectedModifier, error) {
	m := composer.SelectedModifier{
		Name:         name,
		SlotLabel:    c.SlotLabel,
		ServingStyle: c.ServingStyle,
	}
	if c.SlotID != nil {
		m.SlotID = *c.SlotID
	}
	if c.PriceModifier != nil {
		m.PriceModifier = *c.PriceModifier
	}
	m.ExtraCost = decimal.Zero
	if c.ExtraCost != nil {
		m.ExtraCost = *c.ExtraCost
	}
	if c.ProductID == nil {
		return m, nil
	}
	m.ProductID = *c.ProductID
	p, err := r.gw.GetProduct(ctx, m.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		r.logger.Warn("modifier product no longer in catalog",
			zap.String("product_id", m.ProductID.String()),
			zap.String("name", name),
		)
		return m, nil
	}
	if err != nil {
		return composer.SelectedModifier{}, err
	}
	m.CategoryID = p.CategoryID
	m.InventoryItemID = p.InventoryItemID
	m.ConsumedPerUnit = p.ConsumedPerUnit
	return m, nil
}
