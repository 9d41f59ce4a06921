package handlers

import (
	"context"

	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	Checkout(ctx context.Context, input usecase.CheckoutInput) (*model.Order, error)
	Order(ctx context.Context, number string) (*model.Order, error)
	OrderStatus(ctx context.Context, number string) (model.OrderStatus, error)
	OrderPayment(ctx context.Context, orderID int64) (*model.Payment, error)
	OrderStatusLog(ctx context.Context, orderID int64) ([]model.StatusLogEntry, error)
	Transition(ctx context.Context, number string, target model.OrderStatus, actor, reason string) (*model.Order, error)
}

// StockFacade exposes the operator stock ledger.
type StockFacade interface {
	ReceiveStock(ctx context.Context, sku model.SKU, qty int) (int, error)
	WithdrawStock(ctx context.Context, sku model.SKU, qty int) (int, error)
	StockOnHand(ctx context.Context, sku model.SKU) (int, error)
}

// PaymentFacade covers the asynchronous and cash payment paths.
type PaymentFacade interface {
	ProcessWebhook(ctx context.Context, n model.GatewayNotification) (*usecase.WebhookResult, error)
	ConfirmCOD(ctx context.Context, number, actor string) (*model.Order, error)
}

// RefundFacade provides refund operations.
type RefundFacade interface {
	RequestRefund(ctx context.Context, number, reason string, refundType model.RefundType, amount int64, evidence string) (*model.RefundRequest, error)
	ResolveRefund(ctx context.Context, refundID int64, decision usecase.RefundDecision, adminID, note string) (*model.RefundRequest, error)
}

// SystemFacade exposes operational endpoints.
type SystemFacade interface {
	ExpireReservations(ctx context.Context, limit int) (int, error)
	CancelStalePayments(ctx context.Context, limit int) (int, error)
	FlagStaleShipments(ctx context.Context, limit int) (int, error)
	Health(ctx context.Context) error
}

// Facade aggregates the full set of operations used across handlers.
type Facade interface {
	OrderFacade
	PaymentFacade
	RefundFacade
	StockFacade
	SystemFacade
}
