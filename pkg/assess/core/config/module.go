package config

import "go.uber.org/fx"

// Module provides the application configuration.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
)
