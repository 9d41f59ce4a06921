package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

// RefundDecision is an admin's verdict on a pending refund request.
type RefundDecision string

const (
	RefundDecisionApprove RefundDecision = "APPROVE"
	RefundDecisionReject  RefundDecision = "REJECT"
)

// RefundCoordinator manages post-completion refunds: a slower state
// machine that, on approval, drives the order to REFUNDED with its stock
// restoration.
type RefundCoordinator struct {
	orders   repository.OrderRepository
	refunds  repository.RefundRepository
	machine  *OrderStateMachine
	notifier Notifier
	cache    StatusCache
	logger   *slog.Logger
}

// NewRefundCoordinator constructs RefundCoordinator.
func NewRefundCoordinator(orders repository.OrderRepository, refunds repository.RefundRepository, machine *OrderStateMachine, notifier Notifier, cache StatusCache, logger *slog.Logger) *RefundCoordinator {
	return &RefundCoordinator{orders: orders, refunds: refunds, machine: machine, notifier: notifier, cache: cache, logger: logger}
}

// Request opens a refund for a delivered or completed order. At most one
// active request may exist per order.
func (c *RefundCoordinator) Request(ctx context.Context, orderNumber, reason string, refundType model.RefundType, amount int64, evidence string) (*model.RefundRequest, error) {
	order, err := c.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusDelivered && order.Status != model.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: order is %s", domainErrors.ErrRefundNotAllowed, order.Status)
	}

	switch refundType {
	case model.RefundTypeFull:
		amount = order.Total
	case model.RefundTypePartial:
		if amount <= 0 || amount > order.Total {
			return nil, fmt.Errorf("%w: partial refund must be within (0, %d]", domainErrors.ErrInvalidAmount, order.Total)
		}
	default:
		return nil, fmt.Errorf("%w: unknown refund type %q", domainErrors.ErrInvalidAmount, refundType)
	}

	refund, err := c.refunds.Create(ctx, repository.RefundDraft{
		OrderID:  order.ID,
		Reason:   reason,
		Type:     refundType,
		Amount:   amount,
		Evidence: evidence,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("refund requested",
		slog.String("order", order.Number),
		slog.String("type", string(refundType)),
		slog.Int64("amount", amount),
	)
	return refund, nil
}

// Resolve finalizes a pending request. Approval transitions the order to
// REFUNDED and restores stock in the same transaction; rejection leaves
// the order untouched. An already resolved request fails with
// ErrAlreadyResolved.
func (c *RefundCoordinator) Resolve(ctx context.Context, refundID int64, decision RefundDecision, adminID, note string) (*model.RefundRequest, error) {
	refund, err := c.refunds.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if refund.Resolved() {
		return nil, domainErrors.ErrAlreadyResolved
	}

	switch decision {
	case RefundDecisionReject:
		return c.refunds.Resolve(ctx, repository.RefundResolution{
			RefundID:   refundID,
			Status:     model.RefundStatusRejected,
			ResolvedBy: adminID,
			Note:       note,
		})
	case RefundDecisionApprove:
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", domainErrors.ErrInvalidAmount, decision)
	}

	order, err := c.orders.GetByID(ctx, refund.OrderID)
	if err != nil {
		return nil, err
	}

	tr, err := c.machine.Build(order, model.OrderStatusRefunded, adminID, "refund approved")
	if err != nil {
		return nil, err
	}
	tr.Restock = c.restockFor(order, refund)

	resolved, err := c.refunds.Resolve(ctx, repository.RefundResolution{
		RefundID:   refundID,
		Status:     model.RefundStatusCompleted,
		ResolvedBy: adminID,
		Note:       note,
		Transition: tr,
	})
	if err != nil {
		return nil, err
	}

	// the REFUNDED edge ran inside refunds.Resolve, not through the
	// machine, so the cache refresh happens here
	c.cache.SetStatus(ctx, order.Number, model.OrderStatusRefunded)
	c.notifier.Notify(ctx, order.Number, EventOrderRefunded)
	c.logger.Info("refund approved",
		slog.String("order", order.Number),
		slog.Int64("refund_id", refundID),
		slog.Int64("amount", refund.Amount),
	)
	return resolved, nil
}

// ActiveByOrder exposes the open refund request of an order, if any.
func (c *RefundCoordinator) ActiveByOrder(ctx context.Context, orderID int64) (*model.RefundRequest, error) {
	return c.refunds.ActiveByOrder(ctx, orderID)
}

// restockFor computes how many units go back to stock. Full refunds
// restore every committed unit. Partial refunds restore a proportional
// share per line, rounded down to whole units; the remainder is logged
// as non-restockable loss.
func (c *RefundCoordinator) restockFor(order *model.Order, refund *model.RefundRequest) []repository.RestockItem {
	if refund.Type == model.RefundTypeFull || order.Total == 0 {
		return fullRestock(order)
	}

	items := make([]repository.RestockItem, 0, len(order.Items))
	for _, it := range order.Items {
		restored := int(int64(it.Quantity) * refund.Amount / order.Total)
		if lost := it.Quantity - restored; lost > 0 {
			c.logger.Warn("partial refund rounding loss",
				slog.String("order", order.Number),
				slog.Int64("product_id", it.ProductID),
				slog.Int("not_restocked", lost),
			)
		}
		if restored <= 0 {
			continue
		}
		items = append(items, repository.RestockItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  restored,
		})
	}
	return items
}
