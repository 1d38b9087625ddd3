// Package service runs the saved-order lifecycle: finalize, edit, complete,
// cancel and load-for-edit. Every stock change and the order write it belongs
// to share one transaction.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/orderengine/internal/auth"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/database"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/kiwari-pos/orderengine/internal/pricing"
	"github.com/kiwari-pos/orderengine/internal/reconcile"
	"github.com/kiwari-pos/orderengine/internal/tickets"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotEditable    = errors.New("only pending orders can be edited")
	ErrOrderNotPending     = errors.New("order is not pending")
	ErrOrderNotCancellable = errors.New("order is already cancelled")
	ErrVoidNotConfirmed    = errors.New("order is completed: voiding it will not restock inventory, confirm to proceed")
	ErrInvalidManagerPIN   = errors.New("manager pin not recognised")
	ErrInsufficientPayment = errors.New("paid amount is less than the order total")
	ErrInvalidPaidAmount   = errors.New("paid amount must not be negative")
	ErrReasonRequired      = errors.New("cancellation reason is required")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order lifecycle needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	inventory.AdjustStore
	GetNextOrderNumber(ctx context.Context) (int32, error)
	CreateSavedOrder(ctx context.Context, arg database.CreateSavedOrderParams) (database.SavedOrder, error)
	GetSavedOrder(ctx context.Context, id uuid.UUID) (database.SavedOrder, error)
	GetSavedOrderForUpdate(ctx context.Context, id uuid.UUID) (database.SavedOrder, error)
	ListSavedOrders(ctx context.Context, arg database.ListSavedOrdersParams) ([]database.SavedOrder, error)
	UpdateSavedOrderContent(ctx context.Context, arg database.UpdateSavedOrderContentParams) (database.SavedOrder, error)
	UpdateSavedOrderStatus(ctx context.Context, arg database.UpdateSavedOrderStatusParams) (database.SavedOrder, error)
	ListActiveManagers(ctx context.Context) ([]database.Staff, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// StockCache receives the rows of every committed adjustment.
// Satisfied by *inventory.Stock.
type StockCache interface {
	Update(items ...inventory.Item)
}

// Pusher fans events out to terminals. Satisfied by *ws.Hub.
type Pusher interface {
	Publish(topic, eventType string, payload any)
}

type nopStock struct{}

func (nopStock) Update(...inventory.Item) {}

type nopPusher struct{}

func (nopPusher) Publish(string, string, any) {}

// OrderService handles the saved-order lifecycle.
type OrderService struct {
	pool       TxBeginner
	reader     OrderStore
	newStore   NewOrderStore
	composer   *composer.Composer
	reconciler *reconcile.Reconciler
	stock      StockCache
	tickets    tickets.Publisher
	push       Pusher
	logger     *zap.Logger
	retries    int
	now        func() time.Time
}

type Option func(*OrderService)

func WithStockCache(c StockCache) Option { return func(s *OrderService) { s.stock = c } }

func WithTickets(p tickets.Publisher) Option { return func(s *OrderService) { s.tickets = p } }

func WithPusher(p Pusher) Option { return func(s *OrderService) { s.push = p } }

// WithOrderNumberRetries bounds how often a finalize is retried after losing
// an order-number race.
func WithOrderNumberRetries(n int) Option {
	return func(s *OrderService) {
		if n > 0 {
			s.retries = n
		}
	}
}

// NewOrderService creates a new OrderService. reader serves reads outside a
// transaction.
func NewOrderService(pool TxBeginner, reader OrderStore, newStore NewOrderStore, comp *composer.Composer, rec *reconcile.Reconciler, logger *zap.Logger, opts ...Option) *OrderService {
	s := &OrderService{
		pool:       pool,
		reader:     reader,
		newStore:   newStore,
		composer:   comp,
		reconciler: rec,
		stock:      nopStock{},
		tickets:    tickets.Nop{},
		push:       nopPusher{},
		logger:     logger,
		retries:    defaultOrderNumberRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// committed is what a transaction hands to the post-commit fan-out.
type committed struct {
	order   reconcile.SavedOrder
	changed []inventory.Item
	event   string
}

// --- Finalize ---

// Finalize validates the session's order, consumes its stock and persists it
// as pending. A session opened by LoadForEdit updates its saved order
// instead. paid may be nil for an exact payment.
func (s *OrderService) Finalize(ctx context.Context, sess *composer.Session, paid *decimal.Decimal) (composer.Snapshot, reconcile.SavedOrder, error) {
	var result committed
	snap, err := s.composer.Finalize(ctx, sess, func(ctx context.Context, order composer.Order, edit *composer.EditContext) error {
		paidAmount, change, err := settle(order, paid)
		if err != nil {
			return err
		}
		if edit != nil {
			result, err = s.finalizeEditTx(ctx, order, edit.OrderID, paidAmount, change)
			return err
		}
		result, err = s.createWithRetry(ctx, order, paidAmount, change)
		return err
	})
	if err != nil {
		return snap, reconcile.SavedOrder{}, err
	}
	s.afterCommit(ctx, result)
	return snap, result.order, nil
}

// settle checks the payment. CASH may overpay and gets change; other
// methods are charged the exact total.
func settle(order composer.Order, paid *decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	total := order.Total()
	if paid == nil || order.PaymentMethod != enum.PaymentMethodCash {
		return total, decimal.Zero, nil
	}
	if paid.IsNegative() {
		return decimal.Zero, decimal.Zero, ErrInvalidPaidAmount
	}
	if paid.LessThan(total) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: total %s, paid %s", ErrInsufficientPayment, total, paid)
	}
	return *paid, pricing.Change(total, *paid), nil
}

// createWithRetry retries createTx when a concurrent finalize took the same
// order number.
func (s *OrderService) createWithRetry(ctx context.Context, order composer.Order, paid, change decimal.Decimal) (committed, error) {
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		result, err := s.createTx(ctx, order, paid, change)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			s.logger.Info("order number taken, retrying", zap.Int("attempt", attempt+1))
			lastErr = err
			continue
		}
		return committed{}, err
	}
	return committed{}, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "saved_orders_order_number_key"
	}
	return false
}

func (s *OrderService) createTx(ctx context.Context, order composer.Order, paid, change decimal.Decimal) (committed, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return committed{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	consume := inventory.ConsumeDeltas(order.Usages(-1))
	changed, err := inventory.Apply(ctx, store, consume)
	if err != nil {
		return committed{}, err
	}

	number, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return committed{}, fmt.Errorf("next order number: %w", err)
	}

	items, consumed, err := encodeContent(order, consume.Negate())
	if err != nil {
		return committed{}, err
	}
	row, err := store.CreateSavedOrder(ctx, database.CreateSavedOrderParams{
		OrderNumber:   number,
		CustomerName:  order.CustomerName,
		PaymentMethod: order.PaymentMethod,
		Subtotal:      database.Numeric(order.Subtotal()),
		Total:         database.Numeric(order.Total()),
		PaidAmount:    database.Numeric(paid),
		ChangeGiven:   database.Numeric(change),
		Items:         items,
		Consumed:      consumed,
	})
	if err != nil {
		return committed{}, fmt.Errorf("create saved order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return committed{}, fmt.Errorf("commit: %w", err)
	}
	saved, err := reconcile.FromRecord(row)
	if err != nil {
		return committed{}, err
	}
	return committed{order: saved, changed: changed, event: tickets.EventFinalized}, nil
}

// finalizeEditTx restores what the saved order consumed and consumes the
// new content as one merged batch, then rewrites the record in place.
func (s *OrderService) finalizeEditTx(ctx context.Context, order composer.Order, id uuid.UUID, paid, change decimal.Decimal) (committed, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return committed{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := lockOrder(ctx, store, id)
	if err != nil {
		return committed{}, err
	}
	if current.Status != enum.OrderStatusPending {
		return committed{}, fmt.Errorf("%w: order %d is %s", ErrOrderNotEditable, current.OrderNumber, current.Status)
	}

	usages := order.Usages(-1)
	changed, err := inventory.Apply(ctx, store, inventory.EditDeltas(current.ConsumedDeltas(), usages))
	if err != nil {
		return committed{}, err
	}

	items, consumed, err := encodeContent(order, inventory.Required(usages))
	if err != nil {
		return committed{}, err
	}
	row, err := store.UpdateSavedOrderContent(ctx, database.UpdateSavedOrderContentParams{
		ID:            id,
		CustomerName:  order.CustomerName,
		PaymentMethod: order.PaymentMethod,
		Subtotal:      database.Numeric(order.Subtotal()),
		Total:         database.Numeric(order.Total()),
		PaidAmount:    database.Numeric(paid),
		ChangeGiven:   database.Numeric(change),
		Items:         items,
		Consumed:      consumed,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return committed{}, ErrOrderNotEditable
	}
	if err != nil {
		return committed{}, fmt.Errorf("update saved order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return committed{}, fmt.Errorf("commit: %w", err)
	}
	saved, err := reconcile.FromRecord(row)
	if err != nil {
		return committed{}, err
	}
	return committed{order: saved, changed: changed, event: tickets.EventEdited}, nil
}

func encodeContent(order composer.Order, consumed inventory.Deltas) ([]byte, []byte, error) {
	items, err := json.Marshal(reconcile.Flatten(order))
	if err != nil {
		return nil, nil, fmt.Errorf("encode items: %w", err)
	}
	record, err := json.Marshal(reconcile.ConsumedRecord(consumed))
	if err != nil {
		return nil, nil, fmt.Errorf("encode consumed: %w", err)
	}
	return items, record, nil
}

func lockOrder(ctx context.Context, store OrderStore, id uuid.UUID) (reconcile.SavedOrder, error) {
	row, err := store.GetSavedOrderForUpdate(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return reconcile.SavedOrder{}, ErrOrderNotFound
	}
	if err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("get saved order: %w", err)
	}
	return reconcile.FromRecord(row)
}

// --- Status changes ---

// Complete moves a pending order to completed. Stock is untouched.
func (s *OrderService) Complete(ctx context.Context, id uuid.UUID) (reconcile.SavedOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	current, err := lockOrder(ctx, store, id)
	if err != nil {
		return reconcile.SavedOrder{}, err
	}
	if current.Status != enum.OrderStatusPending {
		return reconcile.SavedOrder{}, fmt.Errorf("%w: order %d is %s", ErrOrderNotPending, current.OrderNumber, current.Status)
	}

	row, err := store.UpdateSavedOrderStatus(ctx, database.UpdateSavedOrderStatusParams{
		ID:     id,
		Status: enum.OrderStatusCompleted,
	})
	if err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("commit: %w", err)
	}
	saved, err := reconcile.FromRecord(row)
	if err != nil {
		return reconcile.SavedOrder{}, err
	}
	s.afterCommit(ctx, committed{order: saved, event: tickets.EventCompleted})
	return saved, nil
}

// CancelRequest carries a cancellation authorised by a manager PIN.
type CancelRequest struct {
	Reason      string
	PIN         string
	ConfirmVoid bool
}

// Cancel cancels a pending order and restocks what it consumed, or voids a
// completed one without any stock change once the operator confirms.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, req CancelRequest) (reconcile.SavedOrder, error) {
	if req.Reason == "" {
		return reconcile.SavedOrder{}, ErrReasonRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	manager, err := authorize(ctx, store, req.PIN)
	if err != nil {
		return reconcile.SavedOrder{}, err
	}

	current, err := lockOrder(ctx, store, id)
	if err != nil {
		return reconcile.SavedOrder{}, err
	}

	var changed []inventory.Item
	switch current.Status {
	case enum.OrderStatusCancelled:
		return reconcile.SavedOrder{}, ErrOrderNotCancellable
	case enum.OrderStatusCompleted:
		if !req.ConfirmVoid {
			return reconcile.SavedOrder{}, ErrVoidNotConfirmed
		}
	case enum.OrderStatusPending:
		changed, err = inventory.Apply(ctx, store, inventory.RestockDeltas(current.ConsumedDeltas()))
		if err != nil {
			return reconcile.SavedOrder{}, err
		}
	}

	details, err := json.Marshal(reconcile.Cancellation{
		Reason:        req.Reason,
		CancelledBy:   manager.FullName,
		CancelledAt:   s.now().UTC(),
		AuthorizedPin: auth.MaskPIN(req.PIN),
	})
	if err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("encode cancellation: %w", err)
	}
	row, err := store.UpdateSavedOrderStatus(ctx, database.UpdateSavedOrderStatusParams{
		ID:           id,
		Status:       enum.OrderStatusCancelled,
		Cancellation: details,
	})
	if err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("update status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("commit: %w", err)
	}
	saved, err := reconcile.FromRecord(row)
	if err != nil {
		return reconcile.SavedOrder{}, err
	}
	s.afterCommit(ctx, committed{order: saved, changed: changed, event: tickets.EventCancelled})
	return saved, nil
}

// authorize returns the active manager whose PIN matches.
func authorize(ctx context.Context, store OrderStore, pin string) (database.Staff, error) {
	if pin == "" {
		return database.Staff{}, ErrInvalidManagerPIN
	}
	managers, err := store.ListActiveManagers(ctx)
	if err != nil {
		return database.Staff{}, fmt.Errorf("list managers: %w", err)
	}
	for _, m := range managers {
		if auth.CheckPIN(m.PinHash, pin) {
			return m, nil
		}
	}
	return database.Staff{}, ErrInvalidManagerPIN
}

// --- Reads ---

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (reconcile.SavedOrder, error) {
	row, err := s.reader.GetSavedOrder(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return reconcile.SavedOrder{}, ErrOrderNotFound
	}
	if err != nil {
		return reconcile.SavedOrder{}, fmt.Errorf("get saved order: %w", err)
	}
	return reconcile.FromRecord(row)
}

// List returns orders newest first. An empty status lists every order.
func (s *OrderService) List(ctx context.Context, status string, limit, offset int32) ([]reconcile.SavedOrder, error) {
	rows, err := s.reader.ListSavedOrders(ctx, database.ListSavedOrdersParams{
		Status: pgtype.Text{String: status, Valid: status != ""},
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list saved orders: %w", err)
	}
	out := make([]reconcile.SavedOrder, 0, len(rows))
	for _, r := range rows {
		saved, err := reconcile.FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", r.OrderNumber, err)
		}
		out = append(out, saved)
	}
	return out, nil
}

// LoadForEdit rebuilds a pending order against the live catalog and opens an
// edit session on it. Gaps name every part that could not be rebuilt.
func (s *OrderService) LoadForEdit(ctx context.Context, id, staffID uuid.UUID) (*composer.Session, []reconcile.Gap, error) {
	saved, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if saved.Status != enum.OrderStatusPending {
		return nil, nil, fmt.Errorf("%w: order %d is %s", ErrOrderNotEditable, saved.OrderNumber, saved.Status)
	}
	order, gaps, err := s.reconciler.Rebuild(ctx, saved)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild order %d: %w", saved.OrderNumber, err)
	}
	sess := composer.NewEditSession(staffID, order, composer.EditContext{
		OrderID:     saved.ID,
		OrderNumber: saved.OrderNumber,
		Consumed:    saved.ConsumedDeltas(),
	})
	return sess, gaps, nil
}

// --- Fan-out ---

// afterCommit refreshes the stock snapshot and notifies terminals and the
// ticket renderer. Nothing here can undo the commit.
func (s *OrderService) afterCommit(ctx context.Context, c committed) {
	if len(c.changed) > 0 {
		s.stock.Update(c.changed...)
		s.push.Publish(enum.TopicInventory, "inventory.changed", c.changed)
	}
	s.push.Publish(enum.TopicOrders, c.event, c.order)

	if err := s.tickets.Publish(ctx, ticketFor(c, s.now())); err != nil {
		s.logger.Error("publish ticket",
			zap.String("event", c.event),
			zap.Int32("order_number", c.order.OrderNumber),
			zap.Error(err))
	}
}

func ticketFor(c committed, at time.Time) tickets.Ticket {
	o := c.order
	t := tickets.Ticket{
		Event:         c.event,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		Total:         o.Total,
		PaidAmount:    o.PaidAmount,
		ChangeGiven:   o.ChangeGiven,
		Lines:         make([]tickets.Line, 0, len(o.Items)),
		At:            at,
	}
	if o.CancellationDetails != nil {
		t.Reason = o.CancellationDetails.Reason
	}
	for _, it := range o.Items {
		line := tickets.Line{Name: it.Name, Quantity: it.Quantity, Total: it.TotalItemPrice}
		for _, comp := range it.Components {
			label := comp.Name
			if comp.Quantity > 1 {
				label = fmt.Sprintf("%dx %s", comp.Quantity, comp.Name)
			}
			if comp.ServingStyle != "" {
				label += " (" + comp.ServingStyle + ")"
			}
			line.Components = append(line.Components, label)
		}
		t.Lines = append(t.Lines, line)
	}
	return t
}
