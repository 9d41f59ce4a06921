package test

import (
	"context"
	"sync"

	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

// SweepCall records one reconciler sweep invocation.
type SweepCall struct {
	Op    string
	Limit int
}

// SweepFacadeStub mimics the application surface used by the reconciler.
type SweepFacadeStub struct {
	mu    sync.Mutex
	Calls []SweepCall

	ExpireFn   func(context.Context, int) (int, error)
	PaymentsFn func(context.Context, int) (int, error)
	ShipmentFn func(context.Context, int) (int, error)
}

// Lock exposes internal mutex for external synchronization.
func (s *SweepFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *SweepFacadeStub) Unlock() { s.mu.Unlock() }

func (s *SweepFacadeStub) record(op string, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, SweepCall{Op: op, Limit: limit})
}

// ExpireReservations records the call and delegates to the override.
func (s *SweepFacadeStub) ExpireReservations(ctx context.Context, limit int) (int, error) {
	s.record("expire", limit)
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, limit)
	}
	return 0, nil
}

// CancelStalePayments records the call and delegates to the override.
func (s *SweepFacadeStub) CancelStalePayments(ctx context.Context, limit int) (int, error) {
	s.record("payments", limit)
	if s.PaymentsFn != nil {
		return s.PaymentsFn(ctx, limit)
	}
	return 0, nil
}

// FlagStaleShipments records the call and delegates to the override.
func (s *SweepFacadeStub) FlagStaleShipments(ctx context.Context, limit int) (int, error) {
	s.record("shipments", limit)
	if s.ShipmentFn != nil {
		return s.ShipmentFn(ctx, limit)
	}
	return 0, nil
}

// FacadeStub provides controllable behaviour for HTTP handler tests.
// Overridden methods are driven per test; the defaults return benign
// fixed data.
type FacadeStub struct {
	CheckoutFn      func(context.Context, usecase.CheckoutInput) (*model.Order, error)
	OrderFn         func(context.Context, string) (*model.Order, error)
	OrderStatusFn   func(context.Context, string) (model.OrderStatus, error)
	PaymentFn       func(context.Context, int64) (*model.Payment, error)
	StatusLogFn     func(context.Context, int64) ([]model.StatusLogEntry, error)
	TransitionFn    func(context.Context, string, model.OrderStatus, string, string) (*model.Order, error)
	WebhookFn       func(context.Context, model.GatewayNotification) (*usecase.WebhookResult, error)
	ConfirmCODFn    func(context.Context, string, string) (*model.Order, error)
	RequestRefundFn func(context.Context, string, string, model.RefundType, int64, string) (*model.RefundRequest, error)
	ResolveRefundFn func(context.Context, int64, usecase.RefundDecision, string, string) (*model.RefundRequest, error)
	ReceiveStockFn  func(context.Context, model.SKU, int) (int, error)
	WithdrawStockFn func(context.Context, model.SKU, int) (int, error)
	StockOnHandFn   func(context.Context, model.SKU) (int, error)
	ExpireFn        func(context.Context, int) (int, error)
	PaymentsSweepFn func(context.Context, int) (int, error)
	ShipmentSweepFn func(context.Context, int) (int, error)
	HealthFn        func(context.Context) error
}

func (s FacadeStub) Checkout(ctx context.Context, input usecase.CheckoutInput) (*model.Order, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, input)
	}
	return &model.Order{ID: 1, Number: "ORD-20260829-STUB000001", Status: model.OrderStatusPendingPayment}, nil
}

func (s FacadeStub) Order(ctx context.Context, number string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, number)
	}
	return &model.Order{ID: 1, Number: number, Status: model.OrderStatusPendingPayment}, nil
}

func (s FacadeStub) OrderStatus(ctx context.Context, number string) (model.OrderStatus, error) {
	if s.OrderStatusFn != nil {
		return s.OrderStatusFn(ctx, number)
	}
	return model.OrderStatusPendingPayment, nil
}

func (s FacadeStub) OrderPayment(ctx context.Context, orderID int64) (*model.Payment, error) {
	if s.PaymentFn != nil {
		return s.PaymentFn(ctx, orderID)
	}
	return &model.Payment{OrderID: orderID, Status: model.PaymentStatusPending}, nil
}

func (s FacadeStub) OrderStatusLog(ctx context.Context, orderID int64) ([]model.StatusLogEntry, error) {
	if s.StatusLogFn != nil {
		return s.StatusLogFn(ctx, orderID)
	}
	return nil, nil
}

func (s FacadeStub) Transition(ctx context.Context, number string, target model.OrderStatus, actor, reason string) (*model.Order, error) {
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, number, target, actor, reason)
	}
	return &model.Order{ID: 1, Number: number, Status: target}, nil
}

func (s FacadeStub) ProcessWebhook(ctx context.Context, n model.GatewayNotification) (*usecase.WebhookResult, error) {
	if s.WebhookFn != nil {
		return s.WebhookFn(ctx, n)
	}
	return &usecase.WebhookResult{OrderNumber: n.OrderNumber, Applied: true}, nil
}

func (s FacadeStub) ConfirmCOD(ctx context.Context, number, actor string) (*model.Order, error) {
	if s.ConfirmCODFn != nil {
		return s.ConfirmCODFn(ctx, number, actor)
	}
	return &model.Order{ID: 1, Number: number, Status: model.OrderStatusProcessing}, nil
}

func (s FacadeStub) RequestRefund(ctx context.Context, number, reason string, refundType model.RefundType, amount int64, evidence string) (*model.RefundRequest, error) {
	if s.RequestRefundFn != nil {
		return s.RequestRefundFn(ctx, number, reason, refundType, amount, evidence)
	}
	return &model.RefundRequest{ID: 1, OrderID: 1, Type: refundType, Amount: amount, Status: model.RefundStatusPending}, nil
}

func (s FacadeStub) ResolveRefund(ctx context.Context, refundID int64, decision usecase.RefundDecision, adminID, note string) (*model.RefundRequest, error) {
	if s.ResolveRefundFn != nil {
		return s.ResolveRefundFn(ctx, refundID, decision, adminID, note)
	}
	status := model.RefundStatusCompleted
	if decision == usecase.RefundDecisionReject {
		status = model.RefundStatusRejected
	}
	return &model.RefundRequest{ID: refundID, Status: status}, nil
}

func (s FacadeStub) ReceiveStock(ctx context.Context, sku model.SKU, qty int) (int, error) {
	if s.ReceiveStockFn != nil {
		return s.ReceiveStockFn(ctx, sku, qty)
	}
	return qty, nil
}

func (s FacadeStub) WithdrawStock(ctx context.Context, sku model.SKU, qty int) (int, error) {
	if s.WithdrawStockFn != nil {
		return s.WithdrawStockFn(ctx, sku, qty)
	}
	return 0, nil
}

func (s FacadeStub) StockOnHand(ctx context.Context, sku model.SKU) (int, error) {
	if s.StockOnHandFn != nil {
		return s.StockOnHandFn(ctx, sku)
	}
	return 0, nil
}

func (s FacadeStub) ExpireReservations(ctx context.Context, limit int) (int, error) {
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, limit)
	}
	return 0, nil
}

func (s FacadeStub) CancelStalePayments(ctx context.Context, limit int) (int, error) {
	if s.PaymentsSweepFn != nil {
		return s.PaymentsSweepFn(ctx, limit)
	}
	return 0, nil
}

func (s FacadeStub) FlagStaleShipments(ctx context.Context, limit int) (int, error) {
	if s.ShipmentSweepFn != nil {
		return s.ShipmentSweepFn(ctx, limit)
	}
	return 0, nil
}

func (s FacadeStub) Health(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}
