package usecase

import (
	"context"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// Event types published after successful operations.
const (
	EventOrderCreated     = "order.created"
	EventPaymentConfirmed = "order.payment.confirmed"
	EventOrderCancelled   = "order.cancelled"
	EventOrderShipped     = "order.shipped"
	EventOrderDelivered   = "order.delivered"
	EventOrderCompleted   = "order.completed"
	EventOrderRefunded    = "order.refunded"
	EventShipmentStale    = "order.shipment.stale"
)

// Notifier publishes order events to downstream collaborators. Delivery
// is fire-and-forget: failures are logged by the implementation and must
// never block or fail the calling operation.
type Notifier interface {
	Notify(ctx context.Context, orderNumber, eventType string)
}

// StatusCache keeps a best-effort copy of order status and a fast-path
// record of processed webhooks. The database stays authoritative; a
// cache miss or error only costs a lookup.
type StatusCache interface {
	SetStatus(ctx context.Context, orderNumber string, status model.OrderStatus)
	// Status returns the cached order status; ok is false on a miss or a
	// cache error and the caller falls through to the database.
	Status(ctx context.Context, orderNumber string) (status model.OrderStatus, ok bool)
	SeenWebhook(ctx context.Context, dedupKey string) bool
	MarkWebhook(ctx context.Context, dedupKey string)
}

// GatewayStatusChecker queries the payment gateway for the current state
// of a transaction when no webhook ever arrived.
type GatewayStatusChecker interface {
	Status(ctx context.Context, orderNumber string) (*model.GatewayStatus, error)
}
