package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/soloviev-d/ordercore/internal/config"
)

// Module exposes the gateway status client to the fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.GatewayAddress, p.Logger)
}
