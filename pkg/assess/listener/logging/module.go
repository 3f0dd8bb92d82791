package logging

import "go.uber.org/fx"

// Module registers the logging listeners into the listener groups.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewJobListener, fx.ResultTags(`group:"job_listeners"`)),
		fx.Annotate(NewPhaseListener, fx.ResultTags(`group:"phase_listeners"`)),
	),
)
