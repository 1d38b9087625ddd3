package composer

import (
	"errors"
	"fmt"
)

// MaxInstances bounds how many copies one configuration or order line may hold.
const MaxInstances = 99

var (
	ErrIllegalTransition    = errors.New("action not allowed in current state")
	ErrSlotFull             = errors.New("slot is full")
	ErrSlotBounds           = errors.New("slot selection out of bounds")
	ErrUnknownSlot          = errors.New("slot not available for this item")
	ErrUnknownOption        = errors.New("option not available in this slot")
	ErrModifierNotSelected  = errors.New("modifier is not selected")
	ErrInstanceOutOfRange   = errors.New("instance index out of range")
	ErrItemOutOfRange       = errors.New("order item index out of range")
	ErrInvalidQuantity      = fmt.Errorf("quantity must be between 1 and %d", MaxInstances)
	ErrInvalidExtraCost     = errors.New("extra cost must be >= 0")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrSessionNotFound      = errors.New("session not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
)

// SlotBoundsError names the slot and the instance whose selection count is
// outside the slot's effective bounds.
type SlotBoundsError struct {
	Slot     string
	Item     string
	Instance int
	Selected int
	Min      int32
	Max      int32
}

func (e *SlotBoundsError) Error() string {
	where := fmt.Sprintf("instance %d", e.Instance)
	if e.Item != "" {
		where = fmt.Sprintf("%s in instance %d", e.Item, e.Instance)
	}
	if e.Min == e.Max {
		return fmt.Sprintf("slot %q on %s needs exactly %d selection(s), has %d", e.Slot, where, e.Min, e.Selected)
	}
	return fmt.Sprintf("slot %q on %s needs between %d and %d selection(s), has %d", e.Slot, where, e.Min, e.Max, e.Selected)
}

func (e *SlotBoundsError) Unwrap() error { return ErrSlotBounds }
