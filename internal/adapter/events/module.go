package events

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/soloviev-d/ordercore/internal/config"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

// Module wires the Kafka producer into the fx graph as the Notifier.
var Module = fx.Options(
	fx.Provide(newProducer),
	fx.Provide(func(p *Producer) usecase.Notifier { return p }),
	fx.Invoke(registerLifecycle),
)

type producerParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newProducer(p producerParams) *Producer {
	return NewProducer(p.Config.KafkaBrokers, p.Config.KafkaTopic, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, producer *Producer) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			producer.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
}
