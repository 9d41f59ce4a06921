package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

const reconcilerActor = "reconciler"

// ReconcileUseCase is the periodic sweep: it expires stale stock holds,
// defensively cancels unpaid orders the gateway went silent on, and
// flags shipments stuck in transit.
type ReconcileUseCase struct {
	orders       repository.OrderRepository
	reservations repository.ReservationRepository
	machine      *OrderStateMachine
	webhooks     *WebhookProcessor
	gateway      GatewayStatusChecker
	notifier     Notifier

	paymentExpiry time.Duration
	shipmentStale time.Duration
	logger        *slog.Logger
}

// NewReconcileUseCase constructs ReconcileUseCase.
func NewReconcileUseCase(
	orders repository.OrderRepository,
	reservations repository.ReservationRepository,
	machine *OrderStateMachine,
	webhooks *WebhookProcessor,
	gateway GatewayStatusChecker,
	notifier Notifier,
	paymentExpiry, shipmentStale time.Duration,
	logger *slog.Logger,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		orders:        orders,
		reservations:  reservations,
		machine:       machine,
		webhooks:      webhooks,
		gateway:       gateway,
		notifier:      notifier,
		paymentExpiry: paymentExpiry,
		shipmentStale: shipmentStale,
		logger:        logger,
	}
}

// ExpireReservations releases HELD reservations past their TTL. The
// sweep only sees holds still HELD at sweep time, so a commit that beat
// the sweep is never unwound. Orders still awaiting payment are
// cancelled alongside the release.
func (u *ReconcileUseCase) ExpireReservations(ctx context.Context, limit int) (int, error) {
	orderIDs, err := u.reservations.ExpiredOrderIDs(ctx, time.Now().UTC(), limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range orderIDs {
		order, err := u.orders.GetByID(ctx, id)
		if err != nil {
			u.logger.Error("expired reservation references missing order",
				slog.Int64("order_id", id), slog.String("error", err.Error()))
			continue
		}

		if order.Status == model.OrderStatusPendingPayment {
			// cancellation releases the holds as its stock side effect
			if _, err := u.machine.Transition(ctx, order.ID, model.OrderStatusCancelled, reconcilerActor, "reservation expired"); err != nil {
				if errors.Is(err, domainErrors.ErrInvalidTransition) {
					// lost the race against a payment; leave it alone
					continue
				}
				u.logger.Error("cancel expired order failed",
					slog.String("number", order.Number), slog.String("error", err.Error()))
				continue
			}
			released++
			continue
		}

		// order moved on but a hold survived; release is idempotent
		if err := u.reservations.ReleaseByOrder(ctx, order.ID); err != nil {
			u.logger.Error("release stray hold failed",
				slog.String("number", order.Number), slog.String("error", err.Error()))
			continue
		}
		released++
	}
	return released, nil
}

// CancelStalePayments handles PENDING_PAYMENT orders well past the
// gateway expiry: the gateway is asked once more, since webhooks can be
// silently dropped, then the order is settled or cancelled accordingly.
func (u *ReconcileUseCase) CancelStalePayments(ctx context.Context, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-u.paymentExpiry)
	orders, err := u.orders.ListPendingPaymentBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, order := range orders {
		if order.PaymentMethod == model.PaymentMethodCOD {
			// no gateway transaction exists for cash orders; they settle
			// through the COD confirmation or fall to the expiry sweep
			continue
		}
		status, err := u.gateway.Status(ctx, order.Number)
		switch {
		case err == nil && (status.TransactionStatus == "capture" || status.TransactionStatus == "settlement"):
			// the success webhook never arrived; replay it from the
			// gateway's answer through the normal idempotent path
			n := model.GatewayNotification{
				OrderNumber:       order.Number,
				TransactionID:     status.TransactionID,
				TransactionStatus: status.TransactionStatus,
				GrossAmount:       status.GrossAmount,
			}
			n.Signature = u.webhooks.Sign(n)
			if _, err := u.webhooks.Process(ctx, n); err != nil {
				u.logger.Error("recover silent settlement failed",
					slog.String("number", order.Number), slog.String("error", err.Error()))
				continue
			}
			resolved++
		case err == nil || errors.Is(err, domainErrors.ErrNotFound):
			// pending, expired, denied, or unknown to the gateway:
			// cancel defensively, past expiry nothing can settle it
			if _, err := u.machine.Transition(ctx, order.ID, model.OrderStatusCancelled, reconcilerActor, "payment expired"); err != nil {
				if !errors.Is(err, domainErrors.ErrInvalidTransition) {
					u.logger.Error("cancel stale payment failed",
						slog.String("number", order.Number), slog.String("error", err.Error()))
				}
				continue
			}
			resolved++
		default:
			// gateway unreachable is no reason to cancel anything
			u.logger.Warn("gateway status check failed",
				slog.String("number", order.Number), slog.String("error", err.Error()))
		}
	}
	return resolved, nil
}

// FlagStaleShipments raises an alert for orders stuck in SHIPPED beyond
// the threshold. State is never mutated automatically.
func (u *ReconcileUseCase) FlagStaleShipments(ctx context.Context, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-u.shipmentStale)
	orders, err := u.orders.ListShippedBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	for _, order := range orders {
		u.notifier.Notify(ctx, order.Number, EventShipmentStale)
		u.logger.Warn("shipment stuck in transit",
			slog.String("number", order.Number),
			slog.Time("shipped_at", order.UpdatedAt),
		)
	}
	return len(orders), nil
}
