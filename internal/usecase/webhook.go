package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
	"github.com/soloviev-d/ordercore/internal/pkg/signature"
)

// WebhookResult reports what processing a gateway notification did.
type WebhookResult struct {
	OrderNumber string
	Duplicate   bool
	Applied     bool
	Payment     model.PaymentStatus
}

// WebhookProcessor verifies, de-duplicates, and applies asynchronous
// payment gateway notifications.
type WebhookProcessor struct {
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	processed repository.WebhookRepository
	machine   *OrderStateMachine
	serverKey string
	cache     StatusCache
	notifier  Notifier
	logger    *slog.Logger
}

// NewWebhookProcessor constructs WebhookProcessor.
func NewWebhookProcessor(orders repository.OrderRepository, payments repository.PaymentRepository, processed repository.WebhookRepository, machine *OrderStateMachine, serverKey string, cache StatusCache, notifier Notifier, logger *slog.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		orders:    orders,
		payments:  payments,
		processed: processed,
		machine:   machine,
		serverKey: serverKey,
		cache:     cache,
		notifier:  notifier,
		logger:    logger,
	}
}

// outcome maps a raw gateway transaction status onto a payment status
// and, for terminal statuses, the order edge to run.
type outcome struct {
	payment    model.PaymentStatus
	target     model.OrderStatus
	transition bool
}

func mapTransactionStatus(raw string) (outcome, error) {
	switch raw {
	case "capture", "settlement":
		return outcome{payment: model.PaymentStatusSuccess, target: model.OrderStatusProcessing, transition: true}, nil
	case "deny", "cancel":
		return outcome{payment: model.PaymentStatusFailed, target: model.OrderStatusCancelled, transition: true}, nil
	case "expire":
		return outcome{payment: model.PaymentStatusExpired, target: model.OrderStatusCancelled, transition: true}, nil
	case "pending", "authorize":
		return outcome{payment: model.PaymentStatusPending}, nil
	default:
		return outcome{}, fmt.Errorf("%w %q", domainErrors.ErrUnknownStatus, raw)
	}
}

func dedupKey(n model.GatewayNotification) string {
	return n.TransactionID + ":" + n.TransactionStatus
}

// seen answers the replay check before any work happens: the cache first,
// then the durable processed_webhooks record. A hit on the durable path
// re-warms the cache. Either source erring reads as "not seen"; the
// unique constraint inside ApplyOutcome still has the final word.
func (p *WebhookProcessor) seen(ctx context.Context, n model.GatewayNotification) bool {
	if p.cache.SeenWebhook(ctx, dedupKey(n)) {
		return true
	}
	if _, err := p.processed.Get(ctx, n.TransactionID, n.TransactionStatus); err == nil {
		p.cache.MarkWebhook(ctx, dedupKey(n))
		return true
	}
	return false
}

// Sign computes the signature the gateway would have attached to n.
// Used when replaying a status the gateway reported out-of-band.
func (p *WebhookProcessor) Sign(n model.GatewayNotification) string {
	return signature.Compute(n.OrderNumber, n.TransactionID, n.GrossAmount, p.serverKey)
}

// Process handles one notification. Gracefully-rejected cases return an
// error the HTTP boundary logs and acknowledges; only persistence
// failures should bubble up as retryable.
func (p *WebhookProcessor) Process(ctx context.Context, n model.GatewayNotification) (*WebhookResult, error) {
	if !signature.Verify(n.OrderNumber, n.TransactionID, n.GrossAmount, p.serverKey, n.Signature) {
		p.logger.Error("webhook signature mismatch",
			slog.String("order", n.OrderNumber),
			slog.String("transaction_id", n.TransactionID),
		)
		return nil, domainErrors.ErrInvalidSignature
	}

	if p.seen(ctx, n) {
		return &WebhookResult{OrderNumber: n.OrderNumber, Duplicate: true}, nil
	}

	order, err := p.orders.GetByNumber(ctx, n.OrderNumber)
	if err != nil {
		return nil, err
	}

	if n.GrossAmount != order.Total {
		p.logger.Error("webhook amount mismatch",
			slog.String("order", n.OrderNumber),
			slog.Int64("gross_amount", n.GrossAmount),
			slog.Int64("order_total", order.Total),
		)
		return nil, domainErrors.ErrAmountMismatch
	}

	oc, err := mapTransactionStatus(n.TransactionStatus)
	if err != nil {
		p.logger.Error("webhook with unknown status",
			slog.String("order", n.OrderNumber),
			slog.String("transaction_id", n.TransactionID),
			slog.String("status", n.TransactionStatus),
		)
		return nil, err
	}

	req := repository.PaymentOutcome{
		OrderID:           order.ID,
		OrderNumber:       order.Number,
		TransactionID:     n.TransactionID,
		TransactionStatus: n.TransactionStatus,
		Status:            oc.payment,
	}
	if oc.payment == model.PaymentStatusSuccess {
		now := time.Now().UTC()
		req.PaidAt = &now
	}
	if oc.transition {
		tr, err := p.machine.Build(order, oc.target, "payment-gateway", "gateway status "+n.TransactionStatus)
		if err != nil {
			// an out-of-order webhook (e.g. a late "expire" after a
			// settlement already advanced the order) is rejected here
			return nil, err
		}
		req.Transition = tr
	}

	duplicate, err := p.payments.ApplyOutcome(ctx, req)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("apply payment outcome: %w", err)
	}

	result := &WebhookResult{OrderNumber: order.Number, Duplicate: duplicate, Payment: oc.payment}
	if duplicate {
		return result, nil
	}

	p.cache.MarkWebhook(ctx, dedupKey(n))
	result.Applied = oc.transition
	if oc.transition {
		p.cache.SetStatus(ctx, order.Number, oc.target)
		if event, ok := eventForStatus(oc.target); ok {
			p.notifier.Notify(ctx, order.Number, event)
		}
	}
	p.logger.Info("webhook processed",
		slog.String("order", order.Number),
		slog.String("transaction_id", n.TransactionID),
		slog.String("status", n.TransactionStatus),
		slog.Bool("applied", result.Applied),
	)
	return result, nil
}

// ConfirmCOD is the synchronous cash-on-delivery confirmation path: it
// marks the payment successful and advances the order without any
// gateway webhook.
func (p *WebhookProcessor) ConfirmCOD(ctx context.Context, orderNumber, actor string) (*model.Order, error) {
	order, err := p.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	req, err := p.machine.Build(order, model.OrderStatusProcessing, actor, "cod confirmed")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	success := model.PaymentStatusSuccess
	req.PaymentStatus = &success
	req.PaidAt = &now

	return p.machine.Apply(ctx, *req)
}

// Payment returns the payment record of an order.
func (p *WebhookProcessor) Payment(ctx context.Context, orderID int64) (*model.Payment, error) {
	return p.payments.GetByOrder(ctx, orderID)
}
