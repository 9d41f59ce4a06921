package model

import "time"

// OrderStatus describes the order lifecycle.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusRefunded       OrderStatus = "REFUNDED"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPendingPayment: {OrderStatusProcessing: true, OrderStatusCancelled: true},
	OrderStatusProcessing:     {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:        {OrderStatusDelivered: true},
	OrderStatusDelivered:      {OrderStatusCompleted: true, OrderStatusRefunded: true},
	OrderStatusCompleted:      {OrderStatusRefunded: true},
	OrderStatusCancelled:      {},
	OrderStatusRefunded:       {},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Terminal reports whether no further transition is defined for the status.
func (s OrderStatus) Terminal() bool {
	return len(validNext[s]) == 0
}

// Valid reports whether the status is a known lifecycle state.
func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Order describes a durable purchase order. Mutated only through
// state-machine transitions; cancellation is a status, never a deletion.
type Order struct {
	ID            int64
	Number        string
	UserID        *int64 // nil for guest checkout
	Status        OrderStatus
	Subtotal      int64
	ShippingCost  int64
	Discount      int64
	Total         int64
	PaymentMethod string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is a priced line of an order. UnitPrice is a snapshot taken at
// order time and is immutable afterwards.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	VariantID *int64
	Quantity  int
	UnitPrice int64
	Subtotal  int64
}

// StatusLogEntry is one audit trail record appended with every transition.
type StatusLogEntry struct {
	ID         int64
	OrderID    int64
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Actor      string
	Reason     string
	CreatedAt  time.Time
}
