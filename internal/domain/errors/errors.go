package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyResolved   = errors.New("refund already resolved")
	ErrRefundNotAllowed  = errors.New("refund not allowed for order status")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrAmountMismatch    = errors.New("webhook amount does not match order total")
	ErrUnknownStatus     = errors.New("unknown gateway transaction status")
)

// StockShortage describes one line that could not be reserved.
type StockShortage struct {
	ProductID int64
	VariantID *int64
	Requested int
	Available int
}

// InsufficientStockError carries per-line shortage details for an
// all-or-nothing reservation batch that failed.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Shortages))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
