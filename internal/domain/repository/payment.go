package repository

import (
	"context"
	"time"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// PaymentOutcome applies one verified gateway notification: the dedup
// record, the payment mutation, and the optional order transition commit
// or roll back together.
type PaymentOutcome struct {
	OrderID           int64
	OrderNumber       string
	TransactionID     string
	TransactionStatus string
	Status            model.PaymentStatus
	PaidAt            *time.Time
	// Transition is nil for record-only outcomes (gateway "pending").
	Transition *TransitionRequest
}

// PaymentRepository persists payments and applies webhook outcomes.
type PaymentRepository interface {
	GetByOrder(ctx context.Context, orderID int64) (*model.Payment, error)
	// ApplyOutcome inserts the processed-webhook record guarded by its
	// unique constraint. A conflict short-circuits with duplicate=true
	// and no further mutation. Otherwise the payment row is updated and
	// the transition, if any, executes in the same transaction.
	ApplyOutcome(ctx context.Context, outcome PaymentOutcome) (duplicate bool, err error)
}
