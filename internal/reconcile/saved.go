// Package reconcile converts composed orders to the flat saved-order format
// and rebuilds editable orders from it against the live catalog.
package reconcile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/database"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/shopspring/decimal"
)

// Component is one flattened row of a saved item: a modifier, or a package
// sub-item when SlotLabel is enum.SlotLabelPackageContent.
type Component struct {
	Name          string           `json:"name"`
	SlotLabel     string           `json:"slotLabel,omitempty"`
	ProductID     *uuid.UUID       `json:"productId,omitempty"`
	SlotID        *uuid.UUID       `json:"slotId,omitempty"`
	PackageItemID *uuid.UUID       `json:"packageItemId,omitempty"`
	Quantity      int32            `json:"quantity,omitempty"`
	PriceModifier *decimal.Decimal `json:"priceModifier,omitempty"`
	ServingStyle  string           `json:"servingStyle,omitempty"`
	ExtraCost     *decimal.Decimal `json:"extraCost,omitempty"`
}

// Item is one saved line. ID is the product or package id.
type Item struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Quantity       int32           `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	TotalItemPrice decimal.Decimal `json:"totalItemPrice"`
	Components     []Component     `json:"components"`
}

type Cancellation struct {
	Reason        string    `json:"reason"`
	CancelledBy   string    `json:"cancelledBy"`
	CancelledAt   time.Time `json:"cancelledAt"`
	AuthorizedPin string    `json:"authorizedPin"`
}

// Consumed records stock taken from one inventory item when the order was
// last finalized.
type Consumed struct {
	InventoryItemID uuid.UUID       `json:"inventoryItemId"`
	Amount          decimal.Decimal `json:"amount"`
}

type SavedOrder struct {
	ID                  uuid.UUID        `json:"id"`
	OrderNumber         int32            `json:"orderNumber"`
	CustomerName        string           `json:"customerName"`
	PaymentMethod       string           `json:"paymentMethod"`
	Status              string           `json:"status"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	Total               decimal.Decimal  `json:"total"`
	PaidAmount          *decimal.Decimal `json:"paidAmount,omitempty"`
	ChangeGiven         *decimal.Decimal `json:"changeGiven,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           *time.Time       `json:"updatedAt,omitempty"`
	CancellationDetails *Cancellation    `json:"cancellationDetails,omitempty"`
	Items               []Item           `json:"items"`
	Consumed            []Consumed       `json:"consumed"`
}

// ConsumedDeltas returns the consumption record as positive amounts.
func (s SavedOrder) ConsumedDeltas() inventory.Deltas {
	d := make(inventory.Deltas, len(s.Consumed))
	for _, c := range s.Consumed {
		d.Add(c.InventoryItemID, c.Amount)
	}
	return d
}

// ConsumedRecord turns a positive delta map into its stored form.
func ConsumedRecord(d inventory.Deltas) []Consumed {
	out := make([]Consumed, 0, len(d))
	for _, id := range d.Keys() {
		if d[id].IsZero() {
			continue
		}
		out = append(out, Consumed{InventoryItemID: id, Amount: d[id]})
	}
	return out
}

// FromRecord decodes a saved_orders row.
func FromRecord(r database.SavedOrder) (SavedOrder, error) {
	s := SavedOrder{
		ID:            r.ID,
		OrderNumber:   r.OrderNumber,
		CustomerName:  r.CustomerName,
		PaymentMethod: r.PaymentMethod,
		Status:        r.Status,
		Subtotal:      database.Decimal(r.Subtotal),
		Total:         database.Decimal(r.Total),
		CreatedAt:     r.CreatedAt,
	}
	if r.PaidAmount.Valid {
		v := database.Decimal(r.PaidAmount)
		s.PaidAmount = &v
	}
	if r.ChangeGiven.Valid {
		v := database.Decimal(r.ChangeGiven)
		s.ChangeGiven = &v
	}
	if r.UpdatedAt.Valid {
		t := r.UpdatedAt.Time
		s.UpdatedAt = &t
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &s.Items); err != nil {
			return SavedOrder{}, fmt.Errorf("decode items: %w", err)
		}
	}
	if len(r.Consumed) > 0 {
		if err := json.Unmarshal(r.Consumed, &s.Consumed); err != nil {
			return SavedOrder{}, fmt.Errorf("decode consumed: %w", err)
		}
	}
	if len(r.Cancellation) > 0 {
		var c Cancellation
		if err := json.Unmarshal(r.Cancellation, &c); err != nil {
			return SavedOrder{}, fmt.Errorf("decode cancellation: %w", err)
		}
		s.CancellationDetails = &c
	}
	if s.Items == nil {
		s.Items = []Item{}
	}
	return s, nil
}
