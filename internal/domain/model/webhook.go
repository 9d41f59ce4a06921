package model

import "time"

// GatewayNotification is the decoded payload of a payment gateway webhook.
type GatewayNotification struct {
	OrderNumber       string
	TransactionID     string
	TransactionStatus string
	PaymentType       string
	GrossAmount       int64
	Signature         string
}

// GatewayStatus is the synchronous status-check response used by the
// reconciler when a webhook never arrived.
type GatewayStatus struct {
	OrderNumber       string
	TransactionID     string
	TransactionStatus string
	GrossAmount       int64
}

// ProcessedWebhook is the durable de-duplication record keyed by the
// gateway transaction id.
type ProcessedWebhook struct {
	TransactionID     string
	OrderNumber       string
	TransactionStatus string
	ReceivedAt        time.Time
}
