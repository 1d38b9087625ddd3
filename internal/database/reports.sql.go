package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Report queries count pending and completed orders. Cancelled and voided
// orders are excluded.

type GetDailySalesParams struct {
	From     time.Time
	To       time.Time
	TimeZone string
}

type GetDailySalesRow struct {
	SaleDate     pgtype.Date
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

const getDailySales = `SELECT (created_at AT TIME ZONE $3)::date AS sale_date, COUNT(*) AS order_count, COALESCE(SUM(total), 0) AS total_revenue
FROM saved_orders
WHERE status <> 'cancelled' AND created_at >= $1 AND created_at < $2
GROUP BY sale_date
ORDER BY sale_date`

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.From, arg.To, arg.TimeZone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetDailySalesRow
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(&i.SaleDate, &i.OrderCount, &i.TotalRevenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type GetItemSalesParams struct {
	From  time.Time
	To    time.Time
	Limit int32
}

type GetItemSalesRow struct {
	ItemID       uuid.UUID
	ItemName     string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

// Lines live in the items JSONB array; a product and a package sharing a
// name are kept apart by id.
const getItemSales = `SELECT (it->>'id')::uuid AS item_id, MIN(it->>'name') AS item_name,
    SUM((it->>'quantity')::bigint) AS quantity_sold,
    COALESCE(SUM((it->>'totalItemPrice')::numeric), 0) AS total_revenue
FROM saved_orders, jsonb_array_elements(items) AS it
WHERE status <> 'cancelled' AND created_at >= $1 AND created_at < $2
GROUP BY item_id
ORDER BY quantity_sold DESC, total_revenue DESC
LIMIT $3`

func (q *Queries) GetItemSales(ctx context.Context, arg GetItemSalesParams) ([]GetItemSalesRow, error) {
	rows, err := q.db.Query(ctx, getItemSales, arg.From, arg.To, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetItemSalesRow
	for rows.Next() {
		var i GetItemSalesRow
		if err := rows.Scan(&i.ItemID, &i.ItemName, &i.QuantitySold, &i.TotalRevenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type GetPaymentSummaryParams struct {
	From time.Time
	To   time.Time
}

type GetPaymentSummaryRow struct {
	PaymentMethod    string
	TransactionCount int64
	TotalAmount      pgtype.Numeric
}

const getPaymentSummary = `SELECT payment_method, COUNT(*) AS transaction_count, COALESCE(SUM(total), 0) AS total_amount
FROM saved_orders
WHERE status <> 'cancelled' AND created_at >= $1 AND created_at < $2
GROUP BY payment_method
ORDER BY total_amount DESC`

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPaymentSummaryRow
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(&i.PaymentMethod, &i.TransactionCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
