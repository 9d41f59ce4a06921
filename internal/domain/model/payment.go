package model

import "time"

// Payment methods accepted at checkout. Gateway orders settle through
// asynchronous webhooks; COD orders settle through the synchronous
// confirmation endpoint and never have a gateway transaction.
const (
	PaymentMethodGateway = "gateway"
	PaymentMethodCOD     = "cod"
)

// PaymentStatus describes the gateway-facing payment state.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

// Payment is the one-to-one payment record of an order. Amount equals
// Order.Total at creation; GatewayTransactionID is the idempotency key
// for webhook de-duplication.
type Payment struct {
	ID                   int64
	OrderID              int64
	Method               string
	Amount               int64
	Status               PaymentStatus
	GatewayTransactionID *string
	PaidAt               *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
