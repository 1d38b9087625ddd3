// Package inventory validates stock before items are added to an order and
// computes and applies the signed stock deltas of finalize, edit and cancel.
package inventory

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Item struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	InitialStock decimal.Decimal `json:"initial_stock"`
	CurrentStock decimal.Decimal `json:"current_stock"`
}

// Usage is the stock one candidate line draws from one inventory item:
// PerUnit for each of Units. Usages with the same Line come from the same
// order line and share its Units.
type Usage struct {
	InventoryItemID uuid.UUID
	PerUnit         decimal.Decimal
	Units           int32
	Line            int
	Label           string
}

// OnLine returns usages with Line set to line.
func OnLine(usages []Usage, line int) []Usage {
	for i := range usages {
		usages[i].Line = line
	}
	return usages
}

func (u Usage) Amount() decimal.Decimal {
	return u.PerUnit.Mul(decimal.NewFromInt32(u.Units))
}

// Deltas maps inventory item id to a signed stock change. Negative consumes,
// positive restocks.
type Deltas map[uuid.UUID]decimal.Decimal

func (d Deltas) Add(id uuid.UUID, amount decimal.Decimal) {
	d[id] = d[id].Add(amount)
}

// Merge returns a new map holding the per-key sum of d and other.
func (d Deltas) Merge(other Deltas) Deltas {
	out := make(Deltas, len(d)+len(other))
	for id, v := range d {
		out.Add(id, v)
	}
	for id, v := range other {
		out.Add(id, v)
	}
	return out
}

func (d Deltas) Negate() Deltas {
	out := make(Deltas, len(d))
	for id, v := range d {
		out[id] = v.Neg()
	}
	return out
}

// NonZero drops keys whose delta cancelled out.
func (d Deltas) NonZero() Deltas {
	out := make(Deltas, len(d))
	for id, v := range d {
		if !v.IsZero() {
			out[id] = v
		}
	}
	return out
}

// Keys returns the ids in byte order. Adjustments are applied in this order
// so concurrent batches lock rows consistently.
func (d Deltas) Keys() []uuid.UUID {
	keys := make([]uuid.UUID, 0, len(d))
	for id := range d {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	return keys
}

// Required sums the positive amount each usage needs, per inventory item.
func Required(usages []Usage) Deltas {
	out := make(Deltas)
	for _, u := range usages {
		if u.InventoryItemID == uuid.Nil || u.Units <= 0 || !u.PerUnit.IsPositive() {
			continue
		}
		out.Add(u.InventoryItemID, u.Amount())
	}
	return out
}

// ConsumeDeltas is the negative delta a finalize applies for usages.
func ConsumeDeltas(usages []Usage) Deltas {
	return Required(usages).Negate()
}

// EditDeltas restores what an order consumed before and consumes its new
// content, merged into one map so no intermediate state is applied.
func EditDeltas(previouslyConsumed Deltas, next []Usage) Deltas {
	return previouslyConsumed.Merge(ConsumeDeltas(next)).NonZero()
}

// RestockDeltas gives back exactly what was consumed.
func RestockDeltas(consumed Deltas) Deltas {
	return consumed.Merge(nil).NonZero()
}
