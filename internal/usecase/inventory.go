package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

// InventoryUseCase is the operator side of the stock ledger: receiving
// deliveries, writing off damaged units, and reading the counter.
// Checkout holds are not created here; they stay inside the checkout
// transaction.
type InventoryUseCase struct {
	stock  repository.StockRepository
	logger *slog.Logger
}

// NewInventoryUseCase constructs InventoryUseCase.
func NewInventoryUseCase(stock repository.StockRepository, logger *slog.Logger) *InventoryUseCase {
	return &InventoryUseCase{stock: stock, logger: logger}
}

// Receive adds qty units of a SKU to stock, creating the ledger row on
// first intake. Returns the resulting on-hand quantity.
func (u *InventoryUseCase) Receive(ctx context.Context, sku model.SKU, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: intake quantity must be positive", domainErrors.ErrInvalidAmount)
	}

	err := u.stock.Increment(ctx, sku, qty)
	if errors.Is(err, domainErrors.ErrNotFound) {
		err = u.stock.Upsert(ctx, sku, qty)
	}
	if err != nil {
		return 0, err
	}

	onHand, err := u.stock.OnHand(ctx, sku)
	if err != nil {
		return 0, err
	}
	u.logger.Info("stock received",
		slog.Int64("product_id", sku.ProductID),
		slog.Int("quantity", qty),
		slog.Int("on_hand", onHand),
	)
	return onHand, nil
}

// Withdraw removes qty units from stock (damage, shrinkage, manual
// correction). Fails with ErrInsufficientStock rather than going
// negative.
func (u *InventoryUseCase) Withdraw(ctx context.Context, sku model.SKU, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: withdrawal quantity must be positive", domainErrors.ErrInvalidAmount)
	}

	if err := u.stock.Decrement(ctx, sku, qty); err != nil {
		return 0, err
	}

	onHand, err := u.stock.OnHand(ctx, sku)
	if err != nil {
		return 0, err
	}
	u.logger.Info("stock withdrawn",
		slog.Int64("product_id", sku.ProductID),
		slog.Int("quantity", qty),
		slog.Int("on_hand", onHand),
	)
	return onHand, nil
}

// OnHand reads the current ledger counter for a SKU.
func (u *InventoryUseCase) OnHand(ctx context.Context, sku model.SKU) (int, error) {
	return u.stock.OnHand(ctx, sku)
}
