package redisx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

const (
	keyOrderStatus = "order_status:%s"
	keyWebhook     = "dedup:webhook:%s"

	ttlStatus = 5 * time.Minute
	ttlDedup  = 48 * time.Hour

	opTimeout = 200 * time.Millisecond
)

// Cache is the redis-backed fast path: a short-lived order status cache
// and a webhook dedup set. Everything here is best effort. The database
// stays authoritative, so redis being down only costs speed, never
// correctness.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCache wraps an existing redis client.
func NewCache(client *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// SetStatus caches the latest order status.
func (c *Cache) SetStatus(ctx context.Context, orderNumber string, status model.OrderStatus) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := fmt.Sprintf(keyOrderStatus, orderNumber)
	if err := c.client.Set(ctx, key, string(status), ttlStatus).Err(); err != nil {
		c.logger.Warn("status cache write failed",
			slog.String("order", orderNumber),
			slog.String("error", err.Error()),
		)
	}
}

// Status returns the cached status if present.
func (c *Cache) Status(ctx context.Context, orderNumber string) (model.OrderStatus, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, fmt.Sprintf(keyOrderStatus, orderNumber)).Result()
	if err != nil {
		return "", false
	}
	return model.OrderStatus(val), true
}

// SeenWebhook reports whether the dedup key was marked before. A redis
// error reads as "not seen" so the durable constraint can decide.
func (c *Cache) SeenWebhook(ctx context.Context, dedupKey string) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := c.client.Exists(ctx, fmt.Sprintf(keyWebhook, dedupKey)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// MarkWebhook remembers a processed webhook for the dedup window.
func (c *Cache) MarkWebhook(ctx context.Context, dedupKey string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := fmt.Sprintf(keyWebhook, dedupKey)
	if err := c.client.Set(ctx, key, "1", ttlDedup).Err(); err != nil {
		c.logger.Warn("webhook dedup write failed",
			slog.String("key", dedupKey),
			slog.String("error", err.Error()),
		)
	}
}
