package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/soloviev-d/ordercore/internal/config"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
)

// Module wires PostgreSQL storage and repository adapters.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.Factory { return s },
		func(s *Storage) repository.OrderRepository { return s.Orders() },
		func(s *Storage) repository.StockRepository { return s.Stock() },
		func(s *Storage) repository.ReservationRepository { return s.Reservations() },
		func(s *Storage) repository.PaymentRepository { return s.Payments() },
		func(s *Storage) repository.RefundRepository { return s.Refunds() },
		func(s *Storage) repository.WebhookRepository { return s.Webhooks() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
