package repository

import (
	"context"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// StockRepository is the stock ledger: one authoritative on-hand counter
// per SKU. Decrement is a single conditional update so two checkouts
// racing for the last unit cannot both win.
type StockRepository interface {
	OnHand(ctx context.Context, sku model.SKU) (int, error)
	// Decrement subtracts qty if at least qty is on hand, otherwise
	// returns ErrInsufficientStock without changing anything.
	Decrement(ctx context.Context, sku model.SKU, qty int) error
	Increment(ctx context.Context, sku model.SKU, qty int) error
	// Upsert sets the absolute on-hand quantity (seeding, stock intake).
	Upsert(ctx context.Context, sku model.SKU, onHand int) error
}
