package repository

import (
	"context"
	"time"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// CheckoutItem is one cart line handed over by the checkout collaborator.
type CheckoutItem struct {
	ProductID int64
	VariantID *int64
	Quantity  int
	UnitPrice int64
}

// CheckoutDraft is everything needed to create an order, its items, its
// pending payment, and the stock holds in one unit of work.
type CheckoutDraft struct {
	Number         string
	UserID         *int64
	Items          []CheckoutItem
	Subtotal       int64
	ShippingCost   int64
	Discount       int64
	Total          int64
	PaymentMethod  string
	ReservationTTL time.Duration
}

// StockEffect selects the stock side effect executed atomically with a
// status transition.
type StockEffect int

const (
	// StockEffectNone leaves stock untouched (fulfillment edges).
	StockEffectNone StockEffect = iota
	// StockEffectCommit flips the order's HELD reservations to COMMITTED.
	// The on-hand decrement already happened when the hold was created.
	StockEffectCommit
	// StockEffectRelease returns the order's HELD quantities to stock and
	// marks the reservations RELEASED.
	StockEffectRelease
	// StockEffectRestock adds the explicit Restock quantities back to
	// stock (refunds, post-payment cancellation).
	StockEffectRestock
)

// RestockItem is one quantity returned to stock by StockEffectRestock.
type RestockItem struct {
	ProductID int64
	VariantID *int64
	Quantity  int
}

// TransitionRequest describes one state-machine edge to execute. From is
// re-checked under the row lock so a concurrent transition loses cleanly
// with ErrInvalidTransition instead of applying a stale side effect.
type TransitionRequest struct {
	OrderID int64
	From    model.OrderStatus
	Target  model.OrderStatus
	Actor   string
	Reason  string
	Effect  StockEffect
	Restock []RestockItem

	// Optional payment mutation applied in the same transaction.
	PaymentStatus *model.PaymentStatus
	PaidAt        *time.Time
}

// OrderRepository persists orders and executes transitions atomically.
type OrderRepository interface {
	// CreateWithReservations runs checkout as one transaction: order,
	// items, pending payment, conditional stock decrements, and HELD
	// reservations. Any shortage rolls everything back and returns
	// *errors.InsufficientStockError.
	CreateWithReservations(ctx context.Context, draft CheckoutDraft) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	// Transition executes one guarded edge with its stock side effect and
	// audit record in a single transaction.
	Transition(ctx context.Context, req TransitionRequest) (*model.Order, error)
	StatusLog(ctx context.Context, orderID int64) ([]model.StatusLogEntry, error)
	// ListPendingPaymentBefore returns PENDING_PAYMENT orders created
	// before the cutoff, oldest first.
	ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
	// ListShippedBefore returns SHIPPED orders whose last update is older
	// than the cutoff.
	ListShippedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
}
