package redisx

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/soloviev-d/ordercore/internal/config"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

// Module provides the redis client and the status cache to the fx graph.
var Module = fx.Options(
	fx.Provide(newClient),
	fx.Provide(newCache),
	fx.Provide(func(c *Cache) usecase.StatusCache { return c }),
	fx.Invoke(registerLifecycle),
)

func newClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func newCache(client *redis.Client, logger *slog.Logger) *Cache {
	return NewCache(client, logger)
}

func registerLifecycle(lc fx.Lifecycle, client *redis.Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
