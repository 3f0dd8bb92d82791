package sql

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	gormadapter "github.com/tigerroll/scorin/pkg/assess/adapter/database/gorm"
	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/repository"
)

// NewMetadataDB resolves the connection named by
// infrastructure.job_repository_db_ref. The job repository and both
// stores share it.
func NewMetadataDB(cfg *config.Config, connector *gormadapter.Connector) (*gorm.DB, error) {
	return connector.Resolve(cfg.Scorin.Infrastructure.JobRepositoryDBRef)
}

// Module provides the GORM-backed stores bound to their contracts.
var Module = fx.Options(
	fx.Provide(NewMetadataDB),
	fx.Provide(
		fx.Annotate(NewJobRepository, fx.As(new(repository.JobRepository))),
		fx.Annotate(NewFrameworkStore, fx.As(new(port.FrameworkStore))),
		fx.Annotate(NewSettingsStore, fx.As(new(port.SettingsStore))),
	),
)
