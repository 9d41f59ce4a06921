package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

// pgxPool is the subset of pgxpool.Pool the storage uses. Narrowed so
// tests can substitute a pgxmock pool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type stockRepository struct {
	storage *Storage
}

type reservationRepository struct {
	storage *Storage
}

type paymentRepository struct {
	storage *Storage
}

type refundRepository struct {
	storage *Storage
}

type webhookRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Stock() repository.StockRepository {
	return &stockRepository{storage: s}
}

func (s *Storage) Reservations() repository.ReservationRepository {
	return &reservationRepository{storage: s}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{storage: s}
}

func (s *Storage) Refunds() repository.RefundRepository {
	return &refundRepository{storage: s}
}

func (s *Storage) Webhooks() repository.WebhookRepository {
	return &webhookRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            number TEXT UNIQUE NOT NULL,
            user_id BIGINT,
            status TEXT NOT NULL,
            subtotal BIGINT NOT NULL,
            shipping_cost BIGINT NOT NULL DEFAULT 0,
            discount BIGINT NOT NULL DEFAULT 0,
            total BIGINT NOT NULL,
            payment_method TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            product_id BIGINT NOT NULL,
            variant_id BIGINT,
            quantity INT NOT NULL CHECK (quantity > 0),
            unit_price BIGINT NOT NULL,
            subtotal BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS stock_items (
            id BIGSERIAL PRIMARY KEY,
            product_id BIGINT NOT NULL,
            variant_id BIGINT,
            on_hand INT NOT NULL DEFAULT 0 CHECK (on_hand >= 0)
        )`,
		`CREATE TABLE IF NOT EXISTS stock_reservations (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            product_id BIGINT NOT NULL,
            variant_id BIGINT,
            quantity INT NOT NULL CHECK (quantity > 0),
            status TEXT NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT UNIQUE NOT NULL REFERENCES orders(id),
            method TEXT NOT NULL,
            amount BIGINT NOT NULL,
            status TEXT NOT NULL,
            gateway_transaction_id TEXT,
            paid_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS refund_requests (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            reason TEXT NOT NULL,
            refund_type TEXT NOT NULL,
            amount BIGINT NOT NULL,
            status TEXT NOT NULL,
            evidence TEXT NOT NULL DEFAULT '',
            resolved_by TEXT,
            note TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            resolved_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS processed_webhooks (
            gateway_transaction_id TEXT NOT NULL,
            transaction_status TEXT NOT NULL,
            order_number TEXT NOT NULL,
            received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (gateway_transaction_id, transaction_status)
        )`,
		`CREATE TABLE IF NOT EXISTS order_status_log (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            from_status TEXT NOT NULL,
            to_status TEXT NOT NULL,
            actor TEXT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_stock_items_sku ON stock_items(product_id, COALESCE(variant_id, 0))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_refund_requests_active ON refund_requests(order_id) WHERE status IN ('PENDING', 'APPROVED')`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_expiry ON stock_reservations(status, expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_status_log_order ON order_status_log(order_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, number, user_id, status, subtotal, shipping_cost, discount, total, payment_method, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.Subtotal, &o.ShippingCost, &o.Discount, &o.Total, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()
	var result []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.Subtotal, &o.ShippingCost, &o.Discount, &o.Total, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) loadItems(ctx context.Context, order *model.Order) error {
	const query = `SELECT id, order_id, product_id, variant_id, quantity, unit_price, subtotal
                   FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := s.pool.Query(ctx, query, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return err
		}
		order.Items = append(order.Items, it)
	}
	return rows.Err()
}

// --- OrderRepository implementation ---

const decrementStock = `UPDATE stock_items SET on_hand = on_hand - $3
                        WHERE product_id=$1 AND variant_id IS NOT DISTINCT FROM $2 AND on_hand >= $3`

// sortBySKU orders cart lines by (product_id, variant_id) so concurrent
// checkouts acquire stock row locks in the same order and cannot
// deadlock each other.
func sortBySKU(items []repository.CheckoutItem) []repository.CheckoutItem {
	sorted := append([]repository.CheckoutItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		switch {
		case a.VariantID == nil:
			return b.VariantID != nil
		case b.VariantID == nil:
			return false
		default:
			return *a.VariantID < *b.VariantID
		}
	})
	return sorted
}

func (r *orderRepository) CreateWithReservations(ctx context.Context, draft repository.CheckoutDraft) (*model.Order, error) {
	var order *model.Order
	expiresAt := time.Now().UTC().Add(draft.ReservationTTL)

	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var shortages []domainErrors.StockShortage
		for _, it := range sortBySKU(draft.Items) {
			ct, err := tx.Exec(ctx, decrementStock, it.ProductID, it.VariantID, it.Quantity)
			if err != nil {
				return err
			}
			if ct.RowsAffected() == 0 {
				var available int
				err := tx.QueryRow(ctx,
					`SELECT COALESCE((SELECT on_hand FROM stock_items WHERE product_id=$1 AND variant_id IS NOT DISTINCT FROM $2), 0)`,
					it.ProductID, it.VariantID).Scan(&available)
				if err != nil {
					return err
				}
				shortages = append(shortages, domainErrors.StockShortage{
					ProductID: it.ProductID,
					VariantID: it.VariantID,
					Requested: it.Quantity,
					Available: available,
				})
			}
		}
		if len(shortages) > 0 {
			// rollback reverts the decrements already applied in this batch
			return &domainErrors.InsufficientStockError{Shortages: shortages}
		}

		o := &model.Order{
			Number:        draft.Number,
			UserID:        draft.UserID,
			Status:        model.OrderStatusPendingPayment,
			Subtotal:      draft.Subtotal,
			ShippingCost:  draft.ShippingCost,
			Discount:      draft.Discount,
			Total:         draft.Total,
			PaymentMethod: draft.PaymentMethod,
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO orders (number, user_id, status, subtotal, shipping_cost, discount, total, payment_method)
             VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
			o.Number, o.UserID, o.Status, o.Subtotal, o.ShippingCost, o.Discount, o.Total, o.PaymentMethod,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domainErrors.ErrAlreadyExists
			}
			return err
		}

		for _, it := range draft.Items {
			item := model.OrderItem{
				OrderID:   o.ID,
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				Subtotal:  it.UnitPrice * int64(it.Quantity),
			}
			err := tx.QueryRow(ctx,
				`INSERT INTO order_items (order_id, product_id, variant_id, quantity, unit_price, subtotal)
                 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
				item.OrderID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice, item.Subtotal,
			).Scan(&item.ID)
			if err != nil {
				return err
			}
			o.Items = append(o.Items, item)

			if _, err := tx.Exec(ctx,
				`INSERT INTO stock_reservations (order_id, product_id, variant_id, quantity, status, expires_at)
                 VALUES ($1,$2,$3,$4,$5,$6)`,
				o.ID, it.ProductID, it.VariantID, it.Quantity, model.ReservationStatusHeld, expiresAt,
			); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO payments (order_id, method, amount, status) VALUES ($1,$2,$3,$4)`,
			o.ID, o.PaymentMethod, o.Total, model.PaymentStatusPending,
		); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.storage.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE number=$1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.storage.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) Transition(ctx context.Context, req repository.TransitionRequest) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		o, err := r.storage.transitionTx(ctx, tx, req)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// transitionTx executes one guarded edge: status update, stock side
// effect, optional payment mutation, and the audit record. Callers own
// the surrounding transaction.
func (s *Storage) transitionTx(ctx context.Context, tx pgx.Tx, req repository.TransitionRequest) (*model.Order, error) {
	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, req.OrderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}

	if req.From != "" && order.Status != req.From {
		return nil, fmt.Errorf("%w: expected %s, order is %s", domainErrors.ErrInvalidTransition, req.From, order.Status)
	}
	if !model.CanTransition(order.Status, req.Target) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, order.Status, req.Target)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, order.ID, req.Target); err != nil {
		return nil, err
	}

	switch req.Effect {
	case repository.StockEffectCommit:
		if _, err := tx.Exec(ctx,
			`UPDATE stock_reservations SET status=$2 WHERE order_id=$1 AND status=$3`,
			order.ID, model.ReservationStatusCommitted, model.ReservationStatusHeld,
		); err != nil {
			return nil, err
		}
	case repository.StockEffectRelease:
		if err := s.releaseHeldTx(ctx, tx, order.ID); err != nil {
			return nil, err
		}
	case repository.StockEffectRestock:
		for _, it := range req.Restock {
			if it.Quantity <= 0 {
				continue
			}
			if _, err := tx.Exec(ctx,
				`UPDATE stock_items SET on_hand = on_hand + $3 WHERE product_id=$1 AND variant_id IS NOT DISTINCT FROM $2`,
				it.ProductID, it.VariantID, it.Quantity,
			); err != nil {
				return nil, err
			}
		}
	}

	if req.PaymentStatus != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE payments SET status=$2, paid_at=COALESCE($3, paid_at), updated_at=NOW() WHERE order_id=$1`,
			order.ID, *req.PaymentStatus, req.PaidAt,
		); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO order_status_log (order_id, from_status, to_status, actor, reason) VALUES ($1,$2,$3,$4,$5)`,
		order.ID, order.Status, req.Target, req.Actor, req.Reason,
	); err != nil {
		return nil, err
	}

	order.Status = req.Target
	return order, nil
}

// releaseHeldTx returns HELD quantities to stock and marks the holds
// RELEASED. A second invocation finds nothing HELD and is a no-op.
func (s *Storage) releaseHeldTx(ctx context.Context, tx pgx.Tx, orderID int64) error {
	rows, err := tx.Query(ctx,
		`SELECT product_id, variant_id, quantity FROM stock_reservations WHERE order_id=$1 AND status=$2`,
		orderID, model.ReservationStatusHeld)
	if err != nil {
		return err
	}

	type held struct {
		productID int64
		variantID *int64
		quantity  int
	}
	var holds []held
	for rows.Next() {
		var h held
		if err := rows.Scan(&h.productID, &h.variantID, &h.quantity); err != nil {
			rows.Close()
			return err
		}
		holds = append(holds, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, h := range holds {
		if _, err := tx.Exec(ctx,
			`UPDATE stock_items SET on_hand = on_hand + $3 WHERE product_id=$1 AND variant_id IS NOT DISTINCT FROM $2`,
			h.productID, h.variantID, h.quantity,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE stock_reservations SET status=$2 WHERE order_id=$1 AND status=$3`,
		orderID, model.ReservationStatusReleased, model.ReservationStatusHeld,
	); err != nil {
		return err
	}
	return nil
}

func (r *orderRepository) StatusLog(ctx context.Context, orderID int64) ([]model.StatusLogEntry, error) {
	const query = `SELECT id, order_id, from_status, to_status, actor, reason, created_at
                   FROM order_status_log WHERE order_id=$1 ORDER BY created_at, id`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.StatusLogEntry
	for rows.Next() {
		var e model.StatusLogEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.Actor, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status=$1 AND created_at < $2 ORDER BY created_at LIMIT $3`,
		model.OrderStatusPendingPayment, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

func (r *orderRepository) ListShippedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status=$1 AND updated_at < $2 ORDER BY updated_at LIMIT $3`,
		model.OrderStatusShipped, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// --- StockRepository implementation ---

func (r *stockRepository) OnHand(ctx context.Context, sku model.SKU) (int, error) {
	var onHand int
	err := r.storage.pool.QueryRow(ctx,
		`SELECT on_hand FROM stock_items WHERE product_id=$1 AND variant_id IS NOT DISTINCT FROM $2`,
		sku.ProductID, sku.VariantID).Scan(&onHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrNotFound
		}
		return 0, err
	}
	return onHand, nil
}

func (r *stockRepository) Decrement(ctx context.Context, sku model.SKU, qty int) error {
	ct, err := r.storage.pool.Exec(ctx, decrementStock, sku.ProductID, sku.VariantID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domainErrors.ErrInsufficientStock
	}
	return nil
}

func (r *stockRepository) Increment(ctx context.Context, sku model.SKU, qty int) error {
	ct, err := r.storage.pool.Exec(ctx,
		`UPDATE stock_items SET on_hand = on_hand + $3 WHERE product_id=$1 AND variant_id IS NOT DISTINCT FROM $2`,
		sku.ProductID, sku.VariantID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *stockRepository) Upsert(ctx context.Context, sku model.SKU, onHand int) error {
	_, err := r.storage.pool.Exec(ctx,
		`INSERT INTO stock_items (product_id, variant_id, on_hand) VALUES ($1,$2,$3)
         ON CONFLICT (product_id, COALESCE(variant_id, 0)) DO UPDATE SET on_hand = EXCLUDED.on_hand`,
		sku.ProductID, sku.VariantID, onHand)
	return err
}

// --- ReservationRepository implementation ---

func (r *reservationRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.StockReservation, error) {
	const query = `SELECT id, order_id, product_id, variant_id, quantity, status, expires_at, created_at
                   FROM stock_reservations WHERE order_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.StockReservation
	for rows.Next() {
		var res model.StockReservation
		if err := rows.Scan(&res.ID, &res.OrderID, &res.ProductID, &res.VariantID, &res.Quantity, &res.Status, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *reservationRepository) ExpiredOrderIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT DISTINCT order_id FROM stock_reservations WHERE status=$1 AND expires_at < $2 ORDER BY order_id LIMIT $3`,
		model.ReservationStatusHeld, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *reservationRepository) ReleaseByOrder(ctx context.Context, orderID int64) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		return r.storage.releaseHeldTx(ctx, tx, orderID)
	})
}

// --- PaymentRepository implementation ---

func (r *paymentRepository) GetByOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	const query = `SELECT id, order_id, method, amount, status, gateway_transaction_id, paid_at, created_at, updated_at
                   FROM payments WHERE order_id=$1`
	var p model.Payment
	err := r.storage.pool.QueryRow(ctx, query, orderID).Scan(
		&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.GatewayTransactionID, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) ApplyOutcome(ctx context.Context, outcome repository.PaymentOutcome) (bool, error) {
	duplicate := false
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		// the primary key closes the race between concurrent duplicate
		// deliveries; a status progression for the same transaction id
		// is a distinct row and passes through
		ct, err := tx.Exec(ctx,
			`INSERT INTO processed_webhooks (gateway_transaction_id, transaction_status, order_number)
             VALUES ($1,$2,$3) ON CONFLICT (gateway_transaction_id, transaction_status) DO NOTHING`,
			outcome.TransactionID, outcome.TransactionStatus, outcome.OrderNumber)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			duplicate = true
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE payments SET status=$2, gateway_transaction_id=$3, paid_at=COALESCE($4, paid_at), updated_at=NOW() WHERE order_id=$1`,
			outcome.OrderID, outcome.Status, outcome.TransactionID, outcome.PaidAt,
		); err != nil {
			return err
		}

		if outcome.Transition != nil {
			if _, err := r.storage.transitionTx(ctx, tx, *outcome.Transition); err != nil {
				return err
			}
		}
		return nil
	})
	return duplicate, err
}

// --- RefundRepository implementation ---

const refundColumns = `id, order_id, reason, refund_type, amount, status, evidence, resolved_by, note, created_at, resolved_at`

func scanRefund(row pgx.Row) (*model.RefundRequest, error) {
	var rr model.RefundRequest
	err := row.Scan(&rr.ID, &rr.OrderID, &rr.Reason, &rr.Type, &rr.Amount, &rr.Status, &rr.Evidence, &rr.ResolvedBy, &rr.Note, &rr.CreatedAt, &rr.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *refundRepository) Create(ctx context.Context, draft repository.RefundDraft) (*model.RefundRequest, error) {
	rr := &model.RefundRequest{
		OrderID:  draft.OrderID,
		Reason:   draft.Reason,
		Type:     draft.Type,
		Amount:   draft.Amount,
		Status:   model.RefundStatusPending,
		Evidence: draft.Evidence,
	}
	err := r.storage.pool.QueryRow(ctx,
		`INSERT INTO refund_requests (order_id, reason, refund_type, amount, status, evidence)
         VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		rr.OrderID, rr.Reason, rr.Type, rr.Amount, rr.Status, rr.Evidence,
	).Scan(&rr.ID, &rr.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return rr, nil
}

func (r *refundRepository) GetByID(ctx context.Context, id int64) (*model.RefundRequest, error) {
	rr, err := scanRefund(r.storage.pool.QueryRow(ctx, `SELECT `+refundColumns+` FROM refund_requests WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return rr, nil
}

func (r *refundRepository) ActiveByOrder(ctx context.Context, orderID int64) (*model.RefundRequest, error) {
	rr, err := scanRefund(r.storage.pool.QueryRow(ctx,
		`SELECT `+refundColumns+` FROM refund_requests WHERE order_id=$1 AND status IN ($2, $3)`,
		orderID, model.RefundStatusPending, model.RefundStatusApproved))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return rr, nil
}

func (r *refundRepository) Resolve(ctx context.Context, res repository.RefundResolution) (*model.RefundRequest, error) {
	var resolved *model.RefundRequest
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rr, err := scanRefund(tx.QueryRow(ctx, `SELECT `+refundColumns+` FROM refund_requests WHERE id=$1 FOR UPDATE`, res.RefundID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}
		if rr.Status != model.RefundStatusPending {
			return domainErrors.ErrAlreadyResolved
		}

		if _, err := tx.Exec(ctx,
			`UPDATE refund_requests SET status=$2, resolved_by=$3, note=$4, resolved_at=NOW() WHERE id=$1`,
			rr.ID, res.Status, res.ResolvedBy, res.Note,
		); err != nil {
			return err
		}

		if res.Transition != nil {
			if _, err := r.storage.transitionTx(ctx, tx, *res.Transition); err != nil {
				return err
			}
		}

		rr.Status = res.Status
		rr.ResolvedBy = &res.ResolvedBy
		rr.Note = res.Note
		resolved = rr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// --- WebhookRepository implementation ---

func (r *webhookRepository) Get(ctx context.Context, transactionID, transactionStatus string) (*model.ProcessedWebhook, error) {
	const query = `SELECT gateway_transaction_id, order_number, transaction_status, received_at
                   FROM processed_webhooks WHERE gateway_transaction_id=$1 AND transaction_status=$2`
	var w model.ProcessedWebhook
	err := r.storage.pool.QueryRow(ctx, query, transactionID, transactionStatus).Scan(&w.TransactionID, &w.OrderNumber, &w.TransactionStatus, &w.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
