package inventory

import (
	"context"
	"fmt"

	"github.com/kiwari-pos/orderengine/internal/database"
)

// Store defines the DB methods the gateway needs.
// Satisfied by *database.Queries.
type Store interface {
	AdjustStore
	ListInventoryItems(ctx context.Context) ([]database.InventoryItem, error)
}

// NewStore creates a Store from a DBTX (pool or tx).
type NewStore func(db database.DBTX) Store

// Batcher reads stock and applies a batch of deltas all-or-nothing.
type Batcher interface {
	Items(ctx context.Context) ([]Item, error)
	ApplyBatch(ctx context.Context, deltas Deltas) ([]Item, error)
}

// Gateway is the Postgres-backed Batcher.
type Gateway struct {
	pool     database.TxBeginner
	reader   Store
	newStore NewStore
}

var _ Batcher = (*Gateway)(nil)

func NewGateway(pool database.TxBeginner, reader Store, newStore NewStore) *Gateway {
	return &Gateway{pool: pool, reader: reader, newStore: newStore}
}

func (g *Gateway) Items(ctx context.Context) ([]Item, error) {
	rows, err := g.reader.ListInventoryItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = toItem(r)
	}
	return items, nil
}

// ApplyBatch applies deltas in one transaction.
func (g *Gateway) ApplyBatch(ctx context.Context, deltas Deltas) ([]Item, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	updated, err := Apply(ctx, g.newStore(tx), deltas)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}
