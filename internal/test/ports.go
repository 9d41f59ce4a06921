package test

import (
	"context"
	"sync"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// NotifierEvent records one published order event.
type NotifierEvent struct {
	OrderNumber string
	EventType   string
}

// NotifierStub collects published events for assertions.
type NotifierStub struct {
	mu       sync.Mutex
	NotifyFn func(context.Context, string, string)
	Sent     []NotifierEvent
}

// Notify records the event or delegates to the override.
func (s *NotifierStub) Notify(ctx context.Context, orderNumber, eventType string) {
	if s.NotifyFn != nil {
		s.NotifyFn(ctx, orderNumber, eventType)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, NotifierEvent{OrderNumber: orderNumber, EventType: eventType})
}

// Events returns a copy of everything published so far.
func (s *NotifierStub) Events() []NotifierEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]NotifierEvent(nil), s.Sent...)
}

// StatusCacheStub is an in-memory status cache and webhook dedup set.
type StatusCacheStub struct {
	mu       sync.Mutex
	Statuses map[string]model.OrderStatus
	Seen     map[string]bool
}

// NewStatusCacheStub constructs the stub with initialized maps.
func NewStatusCacheStub() *StatusCacheStub {
	return &StatusCacheStub{
		Statuses: make(map[string]model.OrderStatus),
		Seen:     make(map[string]bool),
	}
}

// SetStatus stores the latest status of an order.
func (s *StatusCacheStub) SetStatus(ctx context.Context, orderNumber string, status model.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statuses[orderNumber] = status
}

// Status returns the cached status of an order, if any.
func (s *StatusCacheStub) Status(ctx context.Context, orderNumber string) (model.OrderStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.Statuses[orderNumber]
	return status, ok
}

// SeenWebhook reports whether the dedup key was marked before.
func (s *StatusCacheStub) SeenWebhook(ctx context.Context, dedupKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Seen[dedupKey]
}

// MarkWebhook remembers the dedup key.
func (s *StatusCacheStub) MarkWebhook(ctx context.Context, dedupKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Seen[dedupKey] = true
}

// GatewayStub answers synchronous status checks in tests.
type GatewayStub struct {
	StatusFn func(context.Context, string) (*model.GatewayStatus, error)
	Result   *model.GatewayStatus
	Err      error
}

// Status returns the configured answer or delegates to the override.
func (s *GatewayStub) Status(ctx context.Context, orderNumber string) (*model.GatewayStatus, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, orderNumber)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		out := *s.Result
		out.OrderNumber = orderNumber
		return &out, nil
	}
	return &model.GatewayStatus{OrderNumber: orderNumber, TransactionStatus: "pending"}, nil
}
