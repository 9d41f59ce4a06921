package dto

// StockChangeRequest adds or removes units of one SKU.
type StockChangeRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// StockLevelResponse reports the on-hand counter of a SKU.
type StockLevelResponse struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	OnHand    int    `json:"on_hand"`
}

// OrderStatusResponse is the lightweight status poll answer.
type OrderStatusResponse struct {
	Number string `json:"number"`
	Status string `json:"status"`
}
