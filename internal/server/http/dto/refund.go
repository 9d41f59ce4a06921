package dto

import "time"

// RefundRequest represents POST /api/orders/:number/refund payload.
type RefundRequest struct {
	Reason   string `json:"reason" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Amount   int64  `json:"amount"`
	Evidence string `json:"evidence"`
}

// RefundResolveRequest represents POST /api/refunds/:id/resolve payload.
type RefundResolveRequest struct {
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

// RefundResponse is the public representation of a refund request.
type RefundResponse struct {
	ID         int64      `json:"id"`
	OrderID    int64      `json:"order_id"`
	Type       string     `json:"type"`
	Amount     int64      `json:"amount"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
