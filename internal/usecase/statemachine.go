package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

// OrderStateMachine owns every status edge. Transitions are validated
// against the adjacency map, paired with their stock side effect, and
// executed atomically by the repository under a row lock that re-checks
// the current status.
type OrderStateMachine struct {
	orders   repository.OrderRepository
	notifier Notifier
	cache    StatusCache
	logger   *slog.Logger
}

// NewOrderStateMachine constructs OrderStateMachine.
func NewOrderStateMachine(orders repository.OrderRepository, notifier Notifier, cache StatusCache, logger *slog.Logger) *OrderStateMachine {
	return &OrderStateMachine{orders: orders, notifier: notifier, cache: cache, logger: logger}
}

// Transition moves an order along one edge on behalf of the given actor.
func (m *OrderStateMachine) Transition(ctx context.Context, orderID int64, target model.OrderStatus, actor, reason string) (*model.Order, error) {
	order, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	req, err := m.Build(order, target, actor, reason)
	if err != nil {
		return nil, err
	}

	return m.Apply(ctx, *req)
}

// Build derives the full transition request, including the stock side
// effect, for moving order to target. It does not execute anything.
func (m *OrderStateMachine) Build(order *model.Order, target model.OrderStatus, actor, reason string) (*repository.TransitionRequest, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown target status %s", domainErrors.ErrInvalidTransition, target)
	}
	if !model.CanTransition(order.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, order.Status, target)
	}

	req := repository.TransitionRequest{
		OrderID: order.ID,
		From:    order.Status,
		Target:  target,
		Actor:   actor,
		Reason:  reason,
		Effect:  repository.StockEffectNone,
	}

	switch target {
	case model.OrderStatusProcessing:
		// decrement happened at hold time, commit only flips status
		req.Effect = repository.StockEffectCommit
	case model.OrderStatusCancelled:
		if order.Status == model.OrderStatusPendingPayment {
			req.Effect = repository.StockEffectRelease
		} else {
			// cancelling a paid order: holds are already committed, so
			// the sold quantities go back explicitly
			req.Effect = repository.StockEffectRestock
			req.Restock = fullRestock(order)
		}
	case model.OrderStatusRefunded:
		// the refund coordinator overrides Restock for partial refunds
		req.Effect = repository.StockEffectRestock
		req.Restock = fullRestock(order)
	}

	return &req, nil
}

// Apply executes a previously built transition and fans out the
// after-effects (cache refresh, downstream notification).
func (m *OrderStateMachine) Apply(ctx context.Context, req repository.TransitionRequest) (*model.Order, error) {
	order, err := m.orders.Transition(ctx, req)
	if err != nil {
		return nil, err
	}

	m.cache.SetStatus(ctx, order.Number, order.Status)
	if event, ok := eventForStatus(order.Status); ok {
		m.notifier.Notify(ctx, order.Number, event)
	}
	m.logger.Info("order transitioned",
		slog.String("number", order.Number),
		slog.String("from", string(req.From)),
		slog.String("to", string(order.Status)),
		slog.String("actor", req.Actor),
	)
	return order, nil
}

// StatusLog returns the audit trail of an order.
func (m *OrderStateMachine) StatusLog(ctx context.Context, orderID int64) ([]model.StatusLogEntry, error) {
	return m.orders.StatusLog(ctx, orderID)
}

func fullRestock(order *model.Order) []repository.RestockItem {
	items := make([]repository.RestockItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, repository.RestockItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}
	return items
}

func eventForStatus(status model.OrderStatus) (string, bool) {
	switch status {
	case model.OrderStatusProcessing:
		return EventPaymentConfirmed, true
	case model.OrderStatusShipped:
		return EventOrderShipped, true
	case model.OrderStatusDelivered:
		return EventOrderDelivered, true
	case model.OrderStatusCompleted:
		return EventOrderCompleted, true
	case model.OrderStatusCancelled:
		return EventOrderCancelled, true
	case model.OrderStatusRefunded:
		return EventOrderRefunded, true
	default:
		return "", false
	}
}
