package gorm

import "go.uber.org/fx"

// Module provides the GORM connector. Dialect registration happens in
// the dialect subpackages' init functions; the application imports the
// dialects it ships with.
var Module = fx.Options(
	fx.Provide(NewConnector),
)
