// Package pricing computes instance and line prices for configured items.
package pricing

import "github.com/shopspring/decimal"

// Adjustment is what one selected modifier adds to an instance.
type Adjustment struct {
	// PriceModifier is the option's base price plus its slot adjustment,
	// fixed when the option was selected.
	PriceModifier decimal.Decimal `json:"price_modifier"`
	// ExtraCost is an ad-hoc surcharge set by the operator.
	ExtraCost decimal.Decimal `json:"extra_cost"`
}

func (a Adjustment) Amount() decimal.Decimal {
	return a.PriceModifier.Add(a.ExtraCost)
}

// InstancePrice is basePrice + Σ(priceModifier + extraCost).
func InstancePrice(basePrice decimal.Decimal, adjustments ...Adjustment) decimal.Decimal {
	total := basePrice
	for _, a := range adjustments {
		total = total.Add(a.Amount())
	}
	return total
}

// LineTotal multiplies one instance's price by the line quantity.
func LineTotal(instancePrice decimal.Decimal, quantity int32) decimal.Decimal {
	return instancePrice.Mul(decimal.NewFromInt32(quantity))
}

// PackageTotal prices a package line. Sub-item adjustments are added once per
// package regardless of the sub-item's quantity, then the whole is multiplied
// by the number of packages.
func PackageTotal(basePrice decimal.Decimal, subItems [][]Adjustment, quantity int32) decimal.Decimal {
	unit := basePrice
	for _, adj := range subItems {
		unit = InstancePrice(unit, adj...)
	}
	return LineTotal(unit, quantity)
}

// Sum adds line totals into an order subtotal.
func Sum(lines ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l)
	}
	return total
}

// Change is what to hand back for a cash payment. It is negative when
// paid does not cover total.
func Change(total, paid decimal.Decimal) decimal.Decimal {
	return paid.Sub(total)
}
