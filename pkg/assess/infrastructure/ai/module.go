package ai

import (
	"go.uber.org/fx"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
)

// Module provides the HTTP AI invoker bound to its contract.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			func(cfg *config.Config) *HTTPInvoker {
				return NewHTTPInvoker(cfg.Scorin.AI)
			},
			fx.As(new(port.AIInvoker)),
		),
	),
)
