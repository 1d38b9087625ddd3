package composer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/shopspring/decimal"
)

// State is a node of the composition state machine.
type State string

const (
	StateCategories         State = "categories"
	StateProducts           State = "products"
	StateConfiguringProduct State = "configuring_product"
	StateConfiguringPackage State = "configuring_package"
	StateFinalized          State = "finalized"
)

func (s State) configuring() bool {
	return s == StateConfiguringProduct || s == StateConfiguringPackage
}

// EditContext marks a session that re-edits a saved order. Consumed is what
// the saved order took from stock; it counts as available while composing
// since it is restored on FinalizeEdit.
type EditContext struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber int32            `json:"order_number"`
	Consumed    inventory.Deltas `json:"-"`
}

// Session is the context object for one order being composed. It is only
// mutated through Composer, which holds its lock for the whole action.
type Session struct {
	ID      uuid.UUID
	StaffID uuid.UUID

	mu         sync.Mutex
	state      State
	categoryID uuid.NullUUID
	order      Order
	config     *Configurator
	editing    *EditContext
	version    int
	updatedAt  time.Time
}

func NewSession(staffID uuid.UUID) *Session {
	return &Session{
		ID:        uuid.New(),
		StaffID:   staffID,
		state:     StateCategories,
		order:     Order{PaymentMethod: enum.PaymentMethodCash},
		updatedAt: time.Now(),
	}
}

// NewEditSession opens a session on a reconciled order.
func NewEditSession(staffID uuid.UUID, order Order, edit EditContext) *Session {
	s := NewSession(staffID)
	s.order = order.Clone()
	if edit.Consumed == nil {
		edit.Consumed = inventory.Deltas{}
	}
	s.editing = &edit
	return s
}

// editCopy detaches the edit context. The session must be locked.
func (s *Session) editCopy() *EditContext {
	if s.editing == nil {
		return nil
	}
	e := *s.editing
	e.Consumed = s.editing.Consumed.Merge(nil)
	return &e
}

// credit is the stock the validator may count on top of current levels for
// a candidate: the edited order's consumption, minus every line already in
// the order except skip.
func (s *Session) credit(skip int) inventory.Deltas {
	credit := inventory.Deltas{}
	if s.editing != nil {
		credit = credit.Merge(s.editing.Consumed)
	}
	return credit.Merge(inventory.ConsumeDeltas(s.order.Usages(skip)))
}

func (s *Session) touch() {
	s.version++
	s.updatedAt = time.Now()
}

// Snapshot is an immutable copy of a session.
type Snapshot struct {
	SessionID     uuid.UUID       `json:"session_id"`
	Version       int             `json:"version"`
	State         State           `json:"state"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	Order         Order           `json:"order"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Total         decimal.Decimal `json:"total"`
	Configuration *ConfigView     `json:"configuration,omitempty"`
	Editing       *EditContext    `json:"editing,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.ID,
		Version:   s.version,
		State:     s.state,
		Order:     s.order.Clone(),
		Subtotal:  s.order.Subtotal(),
		Total:     s.order.Total(),
		Editing:   s.editCopy(),
		UpdatedAt: s.updatedAt,
	}
	if s.categoryID.Valid {
		id := s.categoryID.UUID
		snap.CategoryID = &id
	}
	if s.config != nil {
		v := s.config.View()
		snap.Configuration = &v
	}
	return snap
}

// Snapshot locks the session and copies it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}
