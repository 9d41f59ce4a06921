package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Orders() OrderRepository
	Stock() StockRepository
	Reservations() ReservationRepository
	Payments() PaymentRepository
	Refunds() RefundRepository
	Webhooks() WebhookRepository
}
