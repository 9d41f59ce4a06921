package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

// Store is an in-memory implementation of every repository, with the
// same semantics the SQL layer guarantees: all-or-nothing checkout,
// guarded transitions, idempotent releases, and webhook de-duplication.
// One Store backs one test; all methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	nextOrderID int64
	nextItemID  int64
	nextResID   int64
	nextPayID   int64
	nextRefund  int64
	nextLogID   int64

	orders       map[int64]*model.Order
	byNumber     map[string]int64
	stock        map[string]int
	reservations map[int64][]*model.StockReservation
	payments     map[int64]*model.Payment
	refunds      map[int64]*model.RefundRequest
	webhooks     map[string]*model.ProcessedWebhook
	logs         map[int64][]model.StatusLogEntry

	// Err, when set, fails every call. For simulating a dead database.
	Err error
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		nextOrderID:  1,
		nextItemID:   1,
		nextResID:    1,
		nextPayID:    1,
		nextRefund:   1,
		nextLogID:    1,
		orders:       make(map[int64]*model.Order),
		byNumber:     make(map[string]int64),
		stock:        make(map[string]int),
		reservations: make(map[int64][]*model.StockReservation),
		payments:     make(map[int64]*model.Payment),
		refunds:      make(map[int64]*model.RefundRequest),
		webhooks:     make(map[string]*model.ProcessedWebhook),
		logs:         make(map[int64][]model.StatusLogEntry),
	}
}

// SeedStock sets the on-hand quantity for a SKU.
func (s *Store) SeedStock(sku model.SKU, onHand int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[sku.String()] = onHand
}

// BackdateReservations moves the expiry of an order's holds so expiry
// sweeps can see them without sleeping in tests.
func (s *Store) BackdateReservations(orderID int64, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations[orderID] {
		r.ExpiresAt = expiresAt
	}
}

// BackdateOrder rewrites an order's timestamps for staleness tests.
func (s *Store) BackdateOrder(orderID int64, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.orders[orderID]; ok {
		order.CreatedAt = ts
		order.UpdatedAt = ts
	}
}

func (s *Store) Orders() repository.OrderRepository             { return s }
func (s *Store) Stock() repository.StockRepository              { return s }
func (s *Store) Reservations() repository.ReservationRepository { return s }
func (s *Store) Payments() repository.PaymentRepository         { return s }
func (s *Store) Refunds() repository.RefundRepository           { return refundView{s} }
func (s *Store) Webhooks() repository.WebhookRepository         { return s }

func cloneOrder(o *model.Order) *model.Order {
	out := *o
	out.Items = append([]model.OrderItem(nil), o.Items...)
	return &out
}

// CreateWithReservations mirrors the single-transaction checkout: every
// line is decremented conditionally, any shortage rolls the whole thing
// back, and the order plus holds plus pending payment appear together.
func (s *Store) CreateWithReservations(ctx context.Context, draft repository.CheckoutDraft) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var shortages []domainErrors.StockShortage
	for _, item := range draft.Items {
		key := model.SKU{ProductID: item.ProductID, VariantID: item.VariantID}.String()
		if s.stock[key] < item.Quantity {
			shortages = append(shortages, domainErrors.StockShortage{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Requested: item.Quantity,
				Available: s.stock[key],
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &domainErrors.InsufficientStockError{Shortages: shortages}
	}

	now := time.Now().UTC()
	order := &model.Order{
		ID:            s.nextOrderID,
		Number:        draft.Number,
		UserID:        draft.UserID,
		Status:        model.OrderStatusPendingPayment,
		Subtotal:      draft.Subtotal,
		ShippingCost:  draft.ShippingCost,
		Discount:      draft.Discount,
		Total:         draft.Total,
		PaymentMethod: draft.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.nextOrderID++

	for _, item := range draft.Items {
		key := model.SKU{ProductID: item.ProductID, VariantID: item.VariantID}.String()
		s.stock[key] -= item.Quantity

		order.Items = append(order.Items, model.OrderItem{
			ID:        s.nextItemID,
			OrderID:   order.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.UnitPrice * int64(item.Quantity),
		})
		s.nextItemID++

		s.reservations[order.ID] = append(s.reservations[order.ID], &model.StockReservation{
			ID:        s.nextResID,
			OrderID:   order.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Status:    model.ReservationStatusHeld,
			ExpiresAt: now.Add(draft.ReservationTTL),
			CreatedAt: now,
		})
		s.nextResID++
	}

	s.payments[order.ID] = &model.Payment{
		ID:        s.nextPayID,
		OrderID:   order.ID,
		Method:    draft.PaymentMethod,
		Amount:    draft.Total,
		Status:    model.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextPayID++

	s.orders[order.ID] = order
	s.byNumber[order.Number] = order.ID
	return cloneOrder(order), nil
}

// GetByID fetches an order or returns ErrOrderNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	order, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// GetByNumber fetches an order by its public number.
func (s *Store) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	id, ok := s.byNumber[number]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return cloneOrder(s.orders[id]), nil
}

// Transition executes one guarded edge with its stock side effect.
func (s *Store) Transition(ctx context.Context, req repository.TransitionRequest) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.transitionLocked(req)
}

func (s *Store) transitionLocked(req repository.TransitionRequest) (*model.Order, error) {
	order, ok := s.orders[req.OrderID]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	if order.Status != req.From {
		return nil, fmt.Errorf("order %s is %s, expected %s: %w",
			order.Number, order.Status, req.From, domainErrors.ErrInvalidTransition)
	}
	if !model.CanTransition(order.Status, req.Target) {
		return nil, fmt.Errorf("order %s: %s -> %s: %w",
			order.Number, order.Status, req.Target, domainErrors.ErrInvalidTransition)
	}

	switch req.Effect {
	case repository.StockEffectCommit:
		for _, r := range s.reservations[order.ID] {
			if r.Status == model.ReservationStatusHeld {
				r.Status = model.ReservationStatusCommitted
			}
		}
	case repository.StockEffectRelease:
		s.releaseLocked(order.ID)
	case repository.StockEffectRestock:
		for _, item := range req.Restock {
			key := model.SKU{ProductID: item.ProductID, VariantID: item.VariantID}.String()
			s.stock[key] += item.Quantity
		}
	}

	if req.PaymentStatus != nil {
		if payment, ok := s.payments[order.ID]; ok {
			payment.Status = *req.PaymentStatus
			if payment.PaidAt == nil && req.PaidAt != nil {
				payment.PaidAt = req.PaidAt
			}
			payment.UpdatedAt = time.Now().UTC()
		}
	}

	s.logs[order.ID] = append(s.logs[order.ID], model.StatusLogEntry{
		ID:         s.nextLogID,
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   req.Target,
		Actor:      req.Actor,
		Reason:     req.Reason,
		CreatedAt:  time.Now().UTC(),
	})
	s.nextLogID++

	order.Status = req.Target
	order.UpdatedAt = time.Now().UTC()
	return cloneOrder(order), nil
}

func (s *Store) releaseLocked(orderID int64) {
	for _, r := range s.reservations[orderID] {
		if r.Status != model.ReservationStatusHeld {
			continue
		}
		s.stock[r.SKU().String()] += r.Quantity
		r.Status = model.ReservationStatusReleased
	}
}

// StatusLog returns the audit trail of an order, oldest first.
func (s *Store) StatusLog(ctx context.Context, orderID int64) ([]model.StatusLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]model.StatusLogEntry(nil), s.logs[orderID]...), nil
}

// ListPendingPaymentBefore returns unpaid orders created before cutoff.
func (s *Store) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return s.listByStatus(model.OrderStatusPendingPayment, cutoff, limit, false)
}

// ListShippedBefore returns shipped orders untouched since cutoff.
func (s *Store) ListShippedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return s.listByStatus(model.OrderStatusShipped, cutoff, limit, true)
}

func (s *Store) listByStatus(status model.OrderStatus, cutoff time.Time, limit int, byUpdated bool) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Order
	for id := int64(1); id < s.nextOrderID && len(out) < limit; id++ {
		order, ok := s.orders[id]
		if !ok || order.Status != status {
			continue
		}
		ts := order.CreatedAt
		if byUpdated {
			ts = order.UpdatedAt
		}
		if ts.Before(cutoff) {
			out = append(out, *cloneOrder(order))
		}
	}
	return out, nil
}

// OnHand reports the current stock counter for a SKU.
func (s *Store) OnHand(ctx context.Context, sku model.SKU) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	qty, ok := s.stock[sku.String()]
	if !ok {
		return 0, domainErrors.ErrNotFound
	}
	return qty, nil
}

// Decrement subtracts qty only when enough is on hand.
func (s *Store) Decrement(ctx context.Context, sku model.SKU, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	key := sku.String()
	if s.stock[key] < qty {
		return domainErrors.ErrInsufficientStock
	}
	s.stock[key] -= qty
	return nil
}

// Increment adds qty to an existing counter, ErrNotFound otherwise.
func (s *Store) Increment(ctx context.Context, sku model.SKU, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	key := sku.String()
	if _, ok := s.stock[key]; !ok {
		return domainErrors.ErrNotFound
	}
	s.stock[key] += qty
	return nil
}

// Upsert sets the absolute counter value.
func (s *Store) Upsert(ctx context.Context, sku model.SKU, onHand int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.stock[sku.String()] = onHand
	return nil
}

// ListByOrder returns the reservations of an order.
func (s *Store) ListByOrder(ctx context.Context, orderID int64) ([]model.StockReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.StockReservation
	for _, r := range s.reservations[orderID] {
		out = append(out, *r)
	}
	return out, nil
}

// ExpiredOrderIDs returns orders still holding stock past the TTL.
func (s *Store) ExpiredOrderIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	seen := make(map[int64]bool)
	var out []int64
	for id := int64(1); id < s.nextOrderID && len(out) < limit; id++ {
		for _, r := range s.reservations[id] {
			if r.Status == model.ReservationStatusHeld && r.ExpiresAt.Before(now) && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// ReleaseByOrder returns HELD quantities to stock. Idempotent.
func (s *Store) ReleaseByOrder(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.releaseLocked(orderID)
	return nil
}

// GetByOrder returns the payment record of an order.
func (s *Store) GetByOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	payment, ok := s.payments[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *payment
	return &out, nil
}

// ApplyOutcome records the webhook, mutates the payment, and runs the
// optional transition. A repeated (transaction, status) pair is reported
// as duplicate with nothing mutated, matching the unique constraint.
func (s *Store) ApplyOutcome(ctx context.Context, outcome repository.PaymentOutcome) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}

	key := outcome.TransactionID + ":" + outcome.TransactionStatus
	if _, seen := s.webhooks[key]; seen {
		return true, nil
	}

	if outcome.Transition != nil {
		if _, err := s.transitionLocked(*outcome.Transition); err != nil {
			return false, err
		}
	}

	s.webhooks[key] = &model.ProcessedWebhook{
		TransactionID:     outcome.TransactionID,
		OrderNumber:       outcome.OrderNumber,
		TransactionStatus: outcome.TransactionStatus,
		ReceivedAt:        time.Now().UTC(),
	}

	if payment, ok := s.payments[outcome.OrderID]; ok {
		payment.Status = outcome.Status
		payment.GatewayTransactionID = &outcome.TransactionID
		if payment.PaidAt == nil && outcome.PaidAt != nil {
			payment.PaidAt = outcome.PaidAt
		}
		payment.UpdatedAt = time.Now().UTC()
	}
	return false, nil
}

// refundView adapts Store to the refund repository; a separate type
// because the order repository already claims GetByID on Store.
type refundView struct{ s *Store }

func (v refundView) Create(ctx context.Context, draft repository.RefundDraft) (*model.RefundRequest, error) {
	return v.s.CreateRefund(ctx, draft)
}

func (v refundView) GetByID(ctx context.Context, id int64) (*model.RefundRequest, error) {
	return v.s.GetRefund(ctx, id)
}

func (v refundView) ActiveByOrder(ctx context.Context, orderID int64) (*model.RefundRequest, error) {
	return v.s.ActiveByOrder(ctx, orderID)
}

func (v refundView) Resolve(ctx context.Context, res repository.RefundResolution) (*model.RefundRequest, error) {
	return v.s.Resolve(ctx, res)
}

// CreateRefund registers a PENDING refund unless one is already active.
func (s *Store) CreateRefund(ctx context.Context, draft repository.RefundDraft) (*model.RefundRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, r := range s.refunds {
		if r.OrderID == draft.OrderID &&
			(r.Status == model.RefundStatusPending || r.Status == model.RefundStatusApproved) {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	refund := &model.RefundRequest{
		ID:        s.nextRefund,
		OrderID:   draft.OrderID,
		Reason:    draft.Reason,
		Type:      draft.Type,
		Amount:    draft.Amount,
		Status:    model.RefundStatusPending,
		Evidence:  draft.Evidence,
		CreatedAt: time.Now().UTC(),
	}
	s.nextRefund++
	s.refunds[refund.ID] = refund
	out := *refund
	return &out, nil
}

// GetRefund fetches a refund request.
func (s *Store) GetRefund(ctx context.Context, id int64) (*model.RefundRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	refund, ok := s.refunds[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *refund
	return &out, nil
}

// ActiveByOrder returns the live refund request of an order, if any.
func (s *Store) ActiveByOrder(ctx context.Context, orderID int64) (*model.RefundRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, r := range s.refunds {
		if r.OrderID == orderID &&
			(r.Status == model.RefundStatusPending || r.Status == model.RefundStatusApproved) {
			out := *r
			return &out, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// Resolve finalizes a PENDING refund together with its order transition.
func (s *Store) Resolve(ctx context.Context, res repository.RefundResolution) (*model.RefundRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	refund, ok := s.refunds[res.RefundID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if refund.Status != model.RefundStatusPending {
		return nil, domainErrors.ErrAlreadyResolved
	}
	if res.Transition != nil {
		if _, err := s.transitionLocked(*res.Transition); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	refund.Status = res.Status
	refund.ResolvedBy = &res.ResolvedBy
	refund.Note = res.Note
	refund.ResolvedAt = &now
	out := *refund
	return &out, nil
}

// Get returns the record of a processed (transaction, status) pair.
func (s *Store) Get(ctx context.Context, transactionID, transactionStatus string) (*model.ProcessedWebhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	w, ok := s.webhooks[transactionID+":"+transactionStatus]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *w
	return &out, nil
}
