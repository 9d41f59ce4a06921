package dto

import "time"

// CheckoutItemRequest is one cart line in a checkout request. Prices
// are integer minor units.
type CheckoutItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" binding:"required"`
	UnitPrice int64  `json:"unit_price"`
}

// CheckoutRequest represents POST /api/checkout payload.
type CheckoutRequest struct {
	UserID        *int64                `json:"user_id,omitempty"`
	Items         []CheckoutItemRequest `json:"items" binding:"required"`
	ShippingCost  int64                 `json:"shipping_cost"`
	Discount      int64                 `json:"discount"`
	PaymentMethod string                `json:"payment_method"`
}

// OrderItemResponse is one order line in API responses.
type OrderItemResponse struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// OrderResponse is the public representation of an order.
type OrderResponse struct {
	Number        string              `json:"number"`
	Status        string              `json:"status"`
	Subtotal      int64               `json:"subtotal"`
	ShippingCost  int64               `json:"shipping_cost"`
	Discount      int64               `json:"discount"`
	Total         int64               `json:"total"`
	PaymentMethod string              `json:"payment_method"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// PaymentResponse describes the payment record of an order.
type PaymentResponse struct {
	Method        string     `json:"method"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// StatusLogResponse is one audit trail entry.
type StatusLogResponse struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// OrderDetailResponse is an order with its payment and audit trail.
type OrderDetailResponse struct {
	OrderResponse
	Payment *PaymentResponse    `json:"payment,omitempty"`
	History []StatusLogResponse `json:"history"`
}

// TransitionRequest represents POST /api/orders/:number/transition.
type TransitionRequest struct {
	Target string `json:"target" binding:"required"`
	Reason string `json:"reason"`
}

// ShortageResponse reports one out-of-stock line of a rejected checkout.
type ShortageResponse struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
