package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/soloviev-d/ordercore/internal/config"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Options(
	fx.Provide(newCheckout),
	fx.Provide(NewOrderStateMachine),
	fx.Provide(newWebhookProcessor),
	fx.Provide(NewRefundCoordinator),
	fx.Provide(NewInventoryUseCase),
	fx.Provide(newReconcile),
)

type checkoutParams struct {
	fx.In

	Config   *config.Config
	Orders   repository.OrderRepository
	Notifier Notifier
	Cache    StatusCache
	Logger   *slog.Logger
}

func newCheckout(p checkoutParams) *CheckoutUseCase {
	return NewCheckoutUseCase(p.Orders, p.Config.ReservationTTL, p.Notifier, p.Cache, p.Logger)
}

type webhookParams struct {
	fx.In

	Config    *config.Config
	Orders    repository.OrderRepository
	Payments  repository.PaymentRepository
	Processed repository.WebhookRepository
	Machine   *OrderStateMachine
	Cache     StatusCache
	Notifier  Notifier
	Logger    *slog.Logger
}

func newWebhookProcessor(p webhookParams) *WebhookProcessor {
	return NewWebhookProcessor(p.Orders, p.Payments, p.Processed, p.Machine, p.Config.GatewayServerKey, p.Cache, p.Notifier, p.Logger)
}

type reconcileParams struct {
	fx.In

	Config       *config.Config
	Orders       repository.OrderRepository
	Reservations repository.ReservationRepository
	Machine      *OrderStateMachine
	Webhooks     *WebhookProcessor
	Gateway      GatewayStatusChecker
	Notifier     Notifier
	Logger       *slog.Logger
}

func newReconcile(p reconcileParams) *ReconcileUseCase {
	return NewReconcileUseCase(
		p.Orders,
		p.Reservations,
		p.Machine,
		p.Webhooks,
		p.Gateway,
		p.Notifier,
		p.Config.PaymentExpiry,
		p.Config.ShipmentStaleAfter,
		p.Logger,
	)
}
