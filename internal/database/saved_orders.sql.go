package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const savedOrderColumns = `id, order_number, customer_name, payment_method, status, subtotal, total,
paid_amount, change_given, items, consumed, cancellation, created_at, updated_at`

func scanSavedOrder(row pgx.Row) (SavedOrder, error) {
	var o SavedOrder
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerName, &o.PaymentMethod, &o.Status, &o.Subtotal, &o.Total,
		&o.PaidAmount, &o.ChangeGiven, &o.Items, &o.Consumed, &o.Cancellation, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const getNextOrderNumber = `SELECT COALESCE(MAX(order_number), 0)::int4 + 1 FROM saved_orders`

func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderNumber).Scan(&n)
	return n, err
}

type CreateSavedOrderParams struct {
	OrderNumber   int32
	CustomerName  string
	PaymentMethod string
	Subtotal      pgtype.Numeric
	Total         pgtype.Numeric
	PaidAmount    pgtype.Numeric
	ChangeGiven   pgtype.Numeric
	Items         []byte
	Consumed      []byte
}

const createSavedOrder = `INSERT INTO saved_orders (
    order_number, customer_name, payment_method, status, subtotal, total, paid_amount, change_given, items, consumed
) VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7, $8, $9)
RETURNING ` + savedOrderColumns

func (q *Queries) CreateSavedOrder(ctx context.Context, arg CreateSavedOrderParams) (SavedOrder, error) {
	return scanSavedOrder(q.db.QueryRow(ctx, createSavedOrder,
		arg.OrderNumber, arg.CustomerName, arg.PaymentMethod, arg.Subtotal, arg.Total,
		arg.PaidAmount, arg.ChangeGiven, arg.Items, arg.Consumed,
	))
}

const getSavedOrder = `SELECT ` + savedOrderColumns + ` FROM saved_orders WHERE id = $1`

func (q *Queries) GetSavedOrder(ctx context.Context, id uuid.UUID) (SavedOrder, error) {
	return scanSavedOrder(q.db.QueryRow(ctx, getSavedOrder, id))
}

const getSavedOrderForUpdate = `SELECT ` + savedOrderColumns + ` FROM saved_orders WHERE id = $1 FOR UPDATE`

// GetSavedOrderForUpdate locks the row until the surrounding transaction ends.
func (q *Queries) GetSavedOrderForUpdate(ctx context.Context, id uuid.UUID) (SavedOrder, error) {
	return scanSavedOrder(q.db.QueryRow(ctx, getSavedOrderForUpdate, id))
}

type ListSavedOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

const listSavedOrders = `SELECT ` + savedOrderColumns + ` FROM saved_orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListSavedOrders(ctx context.Context, arg ListSavedOrdersParams) ([]SavedOrder, error) {
	rows, err := q.db.Query(ctx, listSavedOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SavedOrder
	for rows.Next() {
		o, err := scanSavedOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type UpdateSavedOrderContentParams struct {
	ID            uuid.UUID
	CustomerName  string
	PaymentMethod string
	Subtotal      pgtype.Numeric
	Total         pgtype.Numeric
	PaidAmount    pgtype.Numeric
	ChangeGiven   pgtype.Numeric
	Items         []byte
	Consumed      []byte
}

const updateSavedOrderContent = `UPDATE saved_orders
SET customer_name = $2, payment_method = $3, subtotal = $4, total = $5,
    paid_amount = $6, change_given = $7, items = $8, consumed = $9, updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + savedOrderColumns

func (q *Queries) UpdateSavedOrderContent(ctx context.Context, arg UpdateSavedOrderContentParams) (SavedOrder, error) {
	return scanSavedOrder(q.db.QueryRow(ctx, updateSavedOrderContent,
		arg.ID, arg.CustomerName, arg.PaymentMethod, arg.Subtotal, arg.Total,
		arg.PaidAmount, arg.ChangeGiven, arg.Items, arg.Consumed,
	))
}

type UpdateSavedOrderStatusParams struct {
	ID           uuid.UUID
	Status       string
	Cancellation []byte
}

const updateSavedOrderStatus = `UPDATE saved_orders
SET status = $2, cancellation = COALESCE($3, cancellation), updated_at = now()
WHERE id = $1
RETURNING ` + savedOrderColumns

func (q *Queries) UpdateSavedOrderStatus(ctx context.Context, arg UpdateSavedOrderStatusParams) (SavedOrder, error) {
	return scanSavedOrder(q.db.QueryRow(ctx, updateSavedOrderStatus, arg.ID, arg.Status, arg.Cancellation))
}
