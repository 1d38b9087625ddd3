package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError names the item that blocks an add and how many units
// the stock can still satisfy.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	ItemName  string
	Unit      string
	Required  decimal.Decimal
	Available decimal.Decimal
	MaxUnits  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: required %s %s, available %s %s (max %d)",
		e.ItemName, e.Required, e.Unit, e.Available, e.Unit, e.MaxUnits)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Lookup returns the current level of one inventory item.
type Lookup interface {
	Get(ctx context.Context, id uuid.UUID) (Item, bool, error)
}

type Validator struct {
	stock Lookup
}

func NewValidator(stock Lookup) *Validator {
	return &Validator{stock: stock}
}

// Check rejects usages the stock cannot cover. credit is added to current
// stock first: positive for what an edited order will restore, negative for
// lines already waiting in the same order.
func (v *Validator) Check(ctx context.Context, usages []Usage, credit Deltas) error {
	required := Required(usages)
	for _, id := range required.Keys() {
		need := required[id]
		item, ok, err := v.stock.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("stock lookup: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}

		available := item.CurrentStock.Add(credit[id])
		if available.GreaterThanOrEqual(need) {
			continue
		}
		return &InsufficientStockError{
			ItemID:    id,
			ItemName:  item.Name,
			Unit:      item.Unit,
			Required:  need,
			Available: decimal.Max(available, decimal.Zero),
			MaxUnits:  maxUnits(available, usages, id),
		}
	}
	return nil
}

// maxUnits is how many units of the candidate fit in available. One unit
// costs the item's total requirement spread over every unit of the lines
// that draw it; each line's Units are counted once however many usages it has.
func maxUnits(available decimal.Decimal, usages []Usage, id uuid.UUID) int64 {
	need := decimal.Zero
	lines := make(map[int]int32)
	for _, u := range usages {
		if u.InventoryItemID != id || u.Units <= 0 || !u.PerUnit.IsPositive() {
			continue
		}
		need = need.Add(u.Amount())
		lines[u.Line] = max(lines[u.Line], u.Units)
	}
	var units int64
	for _, n := range lines {
		units += int64(n)
	}
	if units == 0 || !need.IsPositive() || !available.IsPositive() {
		return 0
	}
	return available.Mul(decimal.NewFromInt(units)).Div(need).Floor().IntPart()
}
