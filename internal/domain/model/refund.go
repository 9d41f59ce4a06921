package model

import "time"

// RefundStatus describes the slower, secondary refund state machine.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusApproved  RefundStatus = "APPROVED"
	RefundStatusRejected  RefundStatus = "REJECTED"
	RefundStatusCompleted RefundStatus = "COMPLETED"
)

// RefundType selects between restoring the whole order or part of it.
type RefundType string

const (
	RefundTypeFull    RefundType = "FULL"
	RefundTypePartial RefundType = "PARTIAL"
)

// RefundRequest is the at-most-one-active refund record of an order.
type RefundRequest struct {
	ID         int64
	OrderID    int64
	Reason     string
	Type       RefundType
	Amount     int64
	Status     RefundStatus
	Evidence   string
	ResolvedBy *string
	Note       string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Resolved reports whether the request already reached a final decision.
func (r RefundRequest) Resolved() bool {
	return r.Status != RefundStatusPending
}
