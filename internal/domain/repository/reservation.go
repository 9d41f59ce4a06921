package repository

import (
	"context"
	"time"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// ReservationRepository tracks stock holds. Creation happens inside
// OrderRepository.CreateWithReservations; status flips happen inside
// Transition. The standalone release exists for the reconciler sweep.
type ReservationRepository interface {
	ListByOrder(ctx context.Context, orderID int64) ([]model.StockReservation, error)
	// ExpiredOrderIDs returns orders that still have HELD reservations
	// past their TTL at sweep time. Committed holds never qualify.
	ExpiredOrderIDs(ctx context.Context, now time.Time, limit int) ([]int64, error)
	// ReleaseByOrder returns HELD quantities to stock and marks them
	// RELEASED. Idempotent: already released or committed holds are left
	// alone and no error is returned.
	ReleaseByOrder(ctx context.Context, orderID int64) error
}
