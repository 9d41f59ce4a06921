package di

import (
	"go.uber.org/fx"

	"github.com/soloviev-d/ordercore/internal/adapter/events"
	"github.com/soloviev-d/ordercore/internal/adapter/gateway"
	"github.com/soloviev-d/ordercore/internal/adapter/redisx"
	"github.com/soloviev-d/ordercore/internal/app"
	"github.com/soloviev-d/ordercore/internal/config"
	"github.com/soloviev-d/ordercore/internal/logger"
	"github.com/soloviev-d/ordercore/internal/server/http/handlers"
	"github.com/soloviev-d/ordercore/internal/server/http/router"
	"github.com/soloviev-d/ordercore/internal/storage/postgres"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		postgres.Module,
		redisx.Module,
		events.Module,
		gateway.Module,
		fx.Provide(func(client gateway.Client) usecase.GatewayStatusChecker { return client }),
		usecase.Module,
		fx.Provide(func(s *postgres.Storage) app.HealthChecker { return s }),
		fx.Provide(func(f *app.OrderFacade) handlers.Facade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
