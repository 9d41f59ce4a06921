package model

import (
	"fmt"
	"time"
)

// ReservationStatus describes the lifetime of a stock hold.
type ReservationStatus string

const (
	ReservationStatusHeld      ReservationStatus = "HELD"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
	ReservationStatusCommitted ReservationStatus = "COMMITTED"
)

// SKU identifies the unit of stock accounting: a product, or a concrete
// variant of one.
type SKU struct {
	ProductID int64
	VariantID *int64
}

func (s SKU) String() string {
	if s.VariantID == nil {
		return fmt.Sprintf("%d", s.ProductID)
	}
	return fmt.Sprintf("%d/%d", s.ProductID, *s.VariantID)
}

// StockReservation is a time-boxed claim on stock tied to an order. The
// on-hand counter is decremented the moment the hold is created, so a
// release adds the quantity back and a commit only flips status.
type StockReservation struct {
	ID        int64
	OrderID   int64
	ProductID int64
	VariantID *int64
	Quantity  int
	Status    ReservationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SKU returns the stock accounting key of the reservation.
func (r StockReservation) SKU() SKU {
	return SKU{ProductID: r.ProductID, VariantID: r.VariantID}
}
