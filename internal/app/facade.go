package app

import (
	"context"

	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

// HealthChecker reports storage availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// OrderFacade aggregates the use cases behind one surface for the HTTP
// handlers and the reconciler worker.
type OrderFacade struct {
	checkout  *usecase.CheckoutUseCase
	machine   *usecase.OrderStateMachine
	webhooks  *usecase.WebhookProcessor
	refunds   *usecase.RefundCoordinator
	inventory *usecase.InventoryUseCase
	sweeper   *usecase.ReconcileUseCase
	health    HealthChecker
}

// NewOrderFacade constructs the facade over the wired use cases.
func NewOrderFacade(
	checkout *usecase.CheckoutUseCase,
	machine *usecase.OrderStateMachine,
	webhooks *usecase.WebhookProcessor,
	refunds *usecase.RefundCoordinator,
	inventory *usecase.InventoryUseCase,
	sweeper *usecase.ReconcileUseCase,
	health HealthChecker,
) *OrderFacade {
	return &OrderFacade{
		checkout:  checkout,
		machine:   machine,
		webhooks:  webhooks,
		refunds:   refunds,
		inventory: inventory,
		sweeper:   sweeper,
		health:    health,
	}
}

func (f *OrderFacade) Checkout(ctx context.Context, input usecase.CheckoutInput) (*model.Order, error) {
	return f.checkout.Checkout(ctx, input)
}

func (f *OrderFacade) Order(ctx context.Context, number string) (*model.Order, error) {
	return f.checkout.Order(ctx, number)
}

func (f *OrderFacade) OrderStatus(ctx context.Context, number string) (model.OrderStatus, error) {
	return f.checkout.OrderStatus(ctx, number)
}

func (f *OrderFacade) OrderPayment(ctx context.Context, orderID int64) (*model.Payment, error) {
	return f.webhooks.Payment(ctx, orderID)
}

func (f *OrderFacade) OrderStatusLog(ctx context.Context, orderID int64) ([]model.StatusLogEntry, error) {
	return f.machine.StatusLog(ctx, orderID)
}

func (f *OrderFacade) Transition(ctx context.Context, number string, target model.OrderStatus, actor, reason string) (*model.Order, error) {
	order, err := f.checkout.Order(ctx, number)
	if err != nil {
		return nil, err
	}
	return f.machine.Transition(ctx, order.ID, target, actor, reason)
}

func (f *OrderFacade) ProcessWebhook(ctx context.Context, n model.GatewayNotification) (*usecase.WebhookResult, error) {
	return f.webhooks.Process(ctx, n)
}

func (f *OrderFacade) ConfirmCOD(ctx context.Context, number, actor string) (*model.Order, error) {
	return f.webhooks.ConfirmCOD(ctx, number, actor)
}

func (f *OrderFacade) RequestRefund(ctx context.Context, number, reason string, refundType model.RefundType, amount int64, evidence string) (*model.RefundRequest, error) {
	return f.refunds.Request(ctx, number, reason, refundType, amount, evidence)
}

func (f *OrderFacade) ResolveRefund(ctx context.Context, refundID int64, decision usecase.RefundDecision, adminID, note string) (*model.RefundRequest, error) {
	return f.refunds.Resolve(ctx, refundID, decision, adminID, note)
}

func (f *OrderFacade) ReceiveStock(ctx context.Context, sku model.SKU, qty int) (int, error) {
	return f.inventory.Receive(ctx, sku, qty)
}

func (f *OrderFacade) WithdrawStock(ctx context.Context, sku model.SKU, qty int) (int, error) {
	return f.inventory.Withdraw(ctx, sku, qty)
}

func (f *OrderFacade) StockOnHand(ctx context.Context, sku model.SKU) (int, error) {
	return f.inventory.OnHand(ctx, sku)
}

func (f *OrderFacade) ExpireReservations(ctx context.Context, limit int) (int, error) {
	return f.sweeper.ExpireReservations(ctx, limit)
}

func (f *OrderFacade) CancelStalePayments(ctx context.Context, limit int) (int, error) {
	return f.sweeper.CancelStalePayments(ctx, limit)
}

func (f *OrderFacade) FlagStaleShipments(ctx context.Context, limit int) (int, error) {
	return f.sweeper.FlagStaleShipments(ctx, limit)
}

func (f *OrderFacade) Health(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
