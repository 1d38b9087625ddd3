package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/orderengine/internal/database"
)

var (
	ErrItemNotFound   = errors.New("inventory item not found")
	ErrStockUnderflow = errors.New("adjustment would make stock negative")
)

// AdjustStore defines the DB methods needed to adjust stock.
// Satisfied by *database.Queries (and its WithTx variant).
type AdjustStore interface {
	AdjustStock(ctx context.Context, arg database.AdjustStockParams) (database.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
}

// Apply runs every non-zero delta against store in key order and returns the
// updated items. It stops at the first failure; callers run it inside a
// transaction so a failure leaves nothing applied.
func Apply(ctx context.Context, store AdjustStore, deltas Deltas) ([]Item, error) {
	deltas = deltas.NonZero()
	updated := make([]Item, 0, len(deltas))
	for _, id := range deltas.Keys() {
		row, err := store.AdjustStock(ctx, database.AdjustStockParams{
			ID:    id,
			Delta: database.Numeric(deltas[id]),
		})
		if err == nil {
			updated = append(updated, toItem(row))
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("adjust stock %s: %w", id, err)
		}

		// No row: either the item is gone or the guard rejected the delta.
		current, lookupErr := store.GetInventoryItem(ctx, id)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		if lookupErr != nil {
			return nil, fmt.Errorf("adjust stock %s: %w", id, lookupErr)
		}
		return nil, fmt.Errorf("%w: %s has %s, delta %s",
			ErrStockUnderflow, current.Name, database.Decimal(current.CurrentStock), deltas[id])
	}
	return updated, nil
}

func toItem(r database.InventoryItem) Item {
	return Item{
		ID:           r.ID,
		Name:         r.Name,
		Unit:         r.Unit,
		InitialStock: database.Decimal(r.InitialStock),
		CurrentStock: database.Decimal(r.CurrentStock),
	}
}
