package composer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Composer runs composition actions against a Session. Every action holds the
// session lock until it returns and leaves the order with fresh totals.
type Composer struct {
	catalog   catalog.Gateway
	slots     *catalog.SlotResolver
	packages  *catalog.OverrideResolver
	validator *inventory.Validator
	logger    *zap.Logger
}

func New(gw catalog.Gateway, validator *inventory.Validator, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	slots := catalog.NewSlotResolver(gw, logger)
	return &Composer{
		catalog:   gw,
		slots:     slots,
		packages:  catalog.NewOverrideResolver(gw, slots, logger),
		validator: validator,
		logger:    logger,
	}
}

// Slots exposes the resolver for read-only catalog endpoints.
func (c *Composer) Slots() *catalog.SlotResolver { return c.slots }

// Packages exposes the package resolver for read-only catalog endpoints.
func (c *Composer) Packages() *catalog.OverrideResolver { return c.packages }

// do runs fn under the session lock when the session is in one of allowed.
func (c *Composer) do(s *Session, allowed []State, fn func() error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := false
	for _, st := range allowed {
		if s.state == st {
			ok = true
			break
		}
	}
	if !ok {
		return s.snapshot(), fmt.Errorf("%w: %s", ErrIllegalTransition, s.state)
	}
	if err := fn(); err != nil {
		return s.snapshot(), err
	}
	s.touch()
	return s.snapshot(), nil
}

var (
	browsing    = []State{StateCategories, StateProducts}
	configuring = []State{StateConfiguringProduct, StateConfiguringPackage}
	editable    = []State{StateCategories, StateProducts, StateConfiguringProduct, StateConfiguringPackage}
)

func (c *Composer) check(s *Session, skip int) StockCheck {
	credit := s.credit(skip)
	return func(ctx context.Context, usages []inventory.Usage) error {
		return c.validator.Check(ctx, usages, credit)
	}
}

// --- Navigation ---

func (c *Composer) OpenCategory(s *Session, categoryID uuid.UUID) (Snapshot, error) {
	return c.do(s, browsing, func() error {
		s.categoryID = uuid.NullUUID{UUID: categoryID, Valid: true}
		s.state = StateProducts
		return nil
	})
}

// Back leaves a configuration without adding it, or returns from a product
// list to the categories.
func (c *Composer) Back(s *Session) (Snapshot, error) {
	return c.do(s, editable, func() error {
		switch {
		case s.state.configuring():
			s.config = nil
			s.state = StateProducts
		case s.state == StateProducts:
			s.categoryID = uuid.NullUUID{}
			s.state = StateCategories
		}
		return nil
	})
}

func (c *Composer) CancelConfiguration(s *Session) (Snapshot, error) {
	return c.do(s, configuring, func() error {
		s.config = nil
		s.state = StateProducts
		return nil
	})
}

// --- Configuration ---

// BeginProduct starts configuring quantity instances of a product.
func (c *Composer) BeginProduct(ctx context.Context, s *Session, productID uuid.UUID, quantity int) (Snapshot, error) {
	return c.do(s, []State{StateProducts}, func() error {
		if quantity < 1 || quantity > MaxInstances {
			return ErrInvalidQuantity
		}
		p, err := c.catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		slots, err := c.slots.Resolve(ctx, productID)
		if err != nil {
			return err
		}
		s.config = NewProductConfigurator(p, slots, quantity)
		s.state = StateConfiguringProduct
		return nil
	})
}

// BeginPackage starts configuring quantity copies of a package.
func (c *Composer) BeginPackage(ctx context.Context, s *Session, packageID uuid.UUID, quantity int) (Snapshot, error) {
	return c.do(s, []State{StateProducts}, func() error {
		if quantity < 1 || quantity > MaxInstances {
			return ErrInvalidQuantity
		}
		pkg, items, err := c.packages.ResolvePackage(ctx, packageID)
		if err != nil {
			return err
		}
		s.config = NewPackageConfigurator(pkg, items, quantity)
		s.state = StateConfiguringPackage
		return nil
	})
}

func (c *Composer) SetInstanceCount(s *Session, n int) (Snapshot, error) {
	return c.do(s, configuring, func() error {
		return s.config.SetInstanceCount(n)
	})
}

func (c *Composer) SetActiveInstance(s *Session, i int) (Snapshot, error) {
	return c.do(s, configuring, func() error {
		return s.config.SetActive(i)
	})
}

func (c *Composer) Toggle(ctx context.Context, s *Session, instance int, ref SlotRef, productID uuid.UUID) (Snapshot, error) {
	return c.do(s, configuring, func() error {
		_, err := s.config.Toggle(ctx, instance, ref, productID, c.check(s, -1))
		return err
	})
}

func (c *Composer) ApplyCurrentToAll(s *Session) (Snapshot, error) {
	return c.do(s, configuring, func() error {
		s.config.ApplyCurrentToAll()
		return nil
	})
}

func (c *Composer) SetInstanceServingStyle(s *Session, instance int, ref ModifierRef, style string) (Snapshot, error) {
	return c.do(s, configuring, func() error {
		return s.config.SetServingStyle(instance, ref, style)
	})
}

func (c *Composer) SetInstanceExtraCost(s *Session, instance int, ref ModifierRef, cost decimal.Decimal) (Snapshot, error) {
	return c.do(s, configuring, func() error {
		return s.config.SetExtraCost(instance, ref, cost)
	})
}

// CommitConfiguration checks slot bounds on every instance, then stock for
// the whole configuration, then appends the grouped lines to the order.
// Nothing changes when either check fails.
func (c *Composer) CommitConfiguration(ctx context.Context, s *Session) (Snapshot, error) {
	return c.do(s, configuring, func() error {
		if err := s.config.Validate(); err != nil {
			return err
		}
		lines := s.config.Lines()
		var usages []inventory.Usage
		for i, l := range lines {
			usages = append(usages, inventory.OnLine(l.Usages(), i)...)
		}
		if err := c.check(s, -1)(ctx, usages); err != nil {
			return err
		}
		s.order.Items = append(s.order.Items, lines...)
		s.config = nil
		s.state = StateProducts
		return nil
	})
}

// --- Order lines ---

func (c *Composer) line(s *Session, idx int) (*OrderItem, error) {
	if idx < 0 || idx >= len(s.order.Items) {
		return nil, ErrItemOutOfRange
	}
	return &s.order.Items[idx], nil
}

// RemoveItem drops a line. Stock is untouched until finalize.
func (c *Composer) RemoveItem(s *Session, idx int) (Snapshot, error) {
	return c.do(s, editable, func() error {
		if _, err := c.line(s, idx); err != nil {
			return err
		}
		s.order.Items = append(s.order.Items[:idx:idx], s.order.Items[idx+1:]...)
		return nil
	})
}

// SetItemQuantity re-validates stock for the new quantity before applying it.
func (c *Composer) SetItemQuantity(ctx context.Context, s *Session, idx int, quantity int32) (Snapshot, error) {
	return c.do(s, editable, func() error {
		if quantity < 1 || quantity > MaxInstances {
			return ErrInvalidQuantity
		}
		it, err := c.line(s, idx)
		if err != nil {
			return err
		}
		candidate := it.Clone()
		candidate.Quantity = quantity
		if quantity > it.Quantity {
			if err := c.check(s, idx)(ctx, candidate.Usages()); err != nil {
				return err
			}
		}
		it.Quantity = quantity
		it.Recalculate()
		return nil
	})
}

// SetServingStyle changes a selected modifier's serving style on a line.
func (c *Composer) SetServingStyle(s *Session, idx int, ref ModifierRef, style string) (Snapshot, error) {
	return c.do(s, editable, func() error {
		it, err := c.line(s, idx)
		if err != nil {
			return err
		}
		m := it.modifier(ref)
		if m == nil {
			return ErrModifierNotSelected
		}
		m.ServingStyle = style
		it.Recalculate()
		return nil
	})
}

// SetExtraCost changes a selected modifier's surcharge on a line. The line
// total moves by the difference times the line quantity.
func (c *Composer) SetExtraCost(s *Session, idx int, ref ModifierRef, cost decimal.Decimal) (Snapshot, error) {
	return c.do(s, editable, func() error {
		if cost.IsNegative() {
			return ErrInvalidExtraCost
		}
		it, err := c.line(s, idx)
		if err != nil {
			return err
		}
		m := it.modifier(ref)
		if m == nil {
			return ErrModifierNotSelected
		}
		m.ExtraCost = cost
		it.Recalculate()
		return nil
	})
}

// ServingStyles lists the styles offered for a modifier product.
func (c *Composer) ServingStyles(ctx context.Context, productID uuid.UUID) ([]catalog.ServingStyle, error) {
	p, err := c.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return c.catalog.ListServingStyles(ctx, p.CategoryID)
}

func (c *Composer) SetCustomer(s *Session, name, paymentMethod string) (Snapshot, error) {
	return c.do(s, editable, func() error {
		if paymentMethod != "" && !enum.IsPaymentMethod(paymentMethod) {
			return ErrInvalidPaymentMethod
		}
		s.order.CustomerName = name
		if paymentMethod != "" {
			s.order.PaymentMethod = paymentMethod
		}
		return nil
	})
}

// --- Finalize ---

// Persist stores a composed order. It runs while the session is locked.
type Persist func(ctx context.Context, order Order, edit *EditContext) error

// Finalize re-checks stock for the whole order, runs persist and moves the
// session to its terminal state. A failing persist leaves the session as it
// was.
func (c *Composer) Finalize(ctx context.Context, s *Session, persist Persist) (Snapshot, error) {
	return c.do(s, browsing, func() error {
		if len(s.order.Items) == 0 {
			return ErrEmptyOrder
		}
		if !enum.IsPaymentMethod(s.order.PaymentMethod) {
			return ErrInvalidPaymentMethod
		}
		credit := inventory.Deltas{}
		if s.editing != nil {
			credit = s.editing.Consumed
		}
		if err := c.validator.Check(ctx, s.order.Usages(-1), credit); err != nil {
			return err
		}
		if err := persist(ctx, s.order.Clone(), s.editCopy()); err != nil {
			return err
		}
		s.config = nil
		s.state = StateFinalized
		return nil
	})
}
