package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

// CheckoutInput is the cart handed over by the checkout collaborator.
// Unit prices are snapshots taken by the caller.
type CheckoutInput struct {
	UserID        *int64
	Items         []repository.CheckoutItem
	ShippingCost  int64
	Discount      int64
	PaymentMethod string
}

// CheckoutUseCase turns a cart into a durable PENDING_PAYMENT order with
// stock held for it.
type CheckoutUseCase struct {
	orders   repository.OrderRepository
	ttl      time.Duration
	notifier Notifier
	cache    StatusCache
	logger   *slog.Logger
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(orders repository.OrderRepository, ttl time.Duration, notifier Notifier, cache StatusCache, logger *slog.Logger) *CheckoutUseCase {
	return &CheckoutUseCase{orders: orders, ttl: ttl, notifier: notifier, cache: cache, logger: logger}
}

// Checkout validates the cart, reserves stock for every line all-or-
// nothing, and creates the order in one unit of work. A stock shortage
// surfaces synchronously as *errors.InsufficientStockError so the caller
// can report out-of-stock before any payment begins.
func (u *CheckoutUseCase) Checkout(ctx context.Context, input CheckoutInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", domainErrors.ErrInvalidAmount)
	}
	if input.ShippingCost < 0 || input.Discount < 0 {
		return nil, fmt.Errorf("%w: negative shipping or discount", domainErrors.ErrInvalidAmount)
	}

	var subtotal int64
	for _, it := range input.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %d", domainErrors.ErrInvalidAmount, it.ProductID)
		}
		if it.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: negative unit price for product %d", domainErrors.ErrInvalidAmount, it.ProductID)
		}
		subtotal += it.UnitPrice * int64(it.Quantity)
	}

	total := subtotal + input.ShippingCost - input.Discount
	if total < 0 {
		return nil, fmt.Errorf("%w: discount exceeds order value", domainErrors.ErrInvalidAmount)
	}

	if input.PaymentMethod == "" {
		input.PaymentMethod = model.PaymentMethodGateway
	}

	draft := repository.CheckoutDraft{
		Number:         NewOrderNumber(),
		UserID:         input.UserID,
		Items:          input.Items,
		Subtotal:       subtotal,
		ShippingCost:   input.ShippingCost,
		Discount:       input.Discount,
		Total:          total,
		PaymentMethod:  input.PaymentMethod,
		ReservationTTL: u.ttl,
	}

	order, err := u.orders.CreateWithReservations(ctx, draft)
	if err != nil {
		return nil, err
	}

	u.cache.SetStatus(ctx, order.Number, order.Status)
	u.notifier.Notify(ctx, order.Number, EventOrderCreated)
	u.logger.Info("order created",
		slog.String("number", order.Number),
		slog.Int64("total", order.Total),
		slog.Int("items", len(order.Items)),
	)
	return order, nil
}

// Order returns an order with its items by the public order number.
func (u *CheckoutUseCase) Order(ctx context.Context, number string) (*model.Order, error) {
	return u.orders.GetByNumber(ctx, number)
}

// OrderStatus answers the high-traffic "where is my order" poll from the
// cache when possible, touching the database only on a miss. The miss
// path re-warms the cache.
func (u *CheckoutUseCase) OrderStatus(ctx context.Context, number string) (model.OrderStatus, error) {
	if status, ok := u.cache.Status(ctx, number); ok {
		return status, nil
	}
	order, err := u.orders.GetByNumber(ctx, number)
	if err != nil {
		return "", err
	}
	u.cache.SetStatus(ctx, order.Number, order.Status)
	return order.Status, nil
}

// NewOrderNumber generates a human-readable unique order reference.
func NewOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
