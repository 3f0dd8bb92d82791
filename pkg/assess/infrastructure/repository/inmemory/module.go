package inmemory

import (
	"go.uber.org/fx"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
)

// Module provides the in-memory stores bound to their contracts.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewJobRepository, fx.As(new(repository.JobRepository))),
		fx.Annotate(NewFrameworkStore, fx.As(new(port.FrameworkStore))),
		fx.Annotate(NewSettingsStore, fx.As(new(port.SettingsStore))),
	),
)
