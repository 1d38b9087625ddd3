package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryColumns = `id, name, unit, initial_stock, current_stock`

func scanInventoryItem(row pgx.Row) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(&i.ID, &i.Name, &i.Unit, &i.InitialStock, &i.CurrentStock)
	return i, err
}

const listInventoryItems = `SELECT ` + inventoryColumns + ` FROM inventory_items ORDER BY name`

func (q *Queries) ListInventoryItems(ctx context.Context) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listInventoryItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		i, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getInventoryItem = `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1`

func (q *Queries) GetInventoryItem(ctx context.Context, id uuid.UUID) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, getInventoryItem, id))
}

type AdjustStockParams struct {
	ID    uuid.UUID
	Delta pgtype.Numeric
}

// The guard keeps current_stock non-negative without a read-modify-write.
// No row is returned when the item is missing or the delta would underflow.
const adjustStock = `UPDATE inventory_items
SET current_stock = current_stock + $2
WHERE id = $1 AND current_stock + $2 >= 0
RETURNING ` + inventoryColumns

func (q *Queries) AdjustStock(ctx context.Context, arg AdjustStockParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, adjustStock, arg.ID, arg.Delta))
}
