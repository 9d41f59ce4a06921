package dto

// WebhookRequest mirrors the payment gateway notification payload.
// GrossAmount is a decimal string of minor units.
type WebhookRequest struct {
	OrderID           string `json:"order_id" binding:"required"`
	TransactionID     string `json:"transaction_id" binding:"required"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	PaymentType       string `json:"payment_type"`
	GrossAmount       int64  `json:"gross_amount,string"`
	SignatureKey      string `json:"signature_key"`
}

// WebhookResponse acknowledges a processed notification.
type WebhookResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}
