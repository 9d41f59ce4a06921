package repository

import (
	"context"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// RefundDraft creates a new PENDING refund request. A partial unique
// index keeps at most one active request per order.
type RefundDraft struct {
	OrderID  int64
	Reason   string
	Type     model.RefundType
	Amount   int64
	Evidence string
}

// RefundResolution finalizes a PENDING request. For approvals, Transition
// carries the order's REFUNDED edge with its restock effect so the refund
// decision and the stock restoration commit atomically.
type RefundResolution struct {
	RefundID   int64
	Status     model.RefundStatus
	ResolvedBy string
	Note       string
	Transition *TransitionRequest
}

// RefundRepository persists refund requests.
type RefundRepository interface {
	Create(ctx context.Context, draft RefundDraft) (*model.RefundRequest, error)
	GetByID(ctx context.Context, id int64) (*model.RefundRequest, error)
	// ActiveByOrder returns the PENDING or APPROVED request of an order,
	// or ErrNotFound.
	ActiveByOrder(ctx context.Context, orderID int64) (*model.RefundRequest, error)
	// Resolve finalizes a PENDING request under a row lock; a request
	// that is no longer PENDING fails with ErrAlreadyResolved.
	Resolve(ctx context.Context, res RefundResolution) (*model.RefundRequest, error)
}
