package conversation

import (
	"go.uber.org/fx"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
)

// Module provides the HTTP conversation source bound to its contract.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			func(cfg *config.Config) *HTTPSource {
				return NewHTTPSource(cfg.Scorin.Conversation)
			},
			fx.As(new(port.ConversationSource)),
		),
	),
)
