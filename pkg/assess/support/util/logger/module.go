package logger

import "go.uber.org/fx"

// Module is an fx module that installs the logger adapter for fx events.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
