package milestone

import (
	appconfig "github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/milestone/domain"
	"github.com/simpmc/simppay/internal/milestone/repository"
	"github.com/simpmc/simppay/internal/milestone/service"
	"go.uber.org/fx"
)

var Module = fx.Module("milestone.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg appconfig.Config) ([]domain.Definition, error) {
		return LoadDefinitions(cfg.MilestonesFile)
	}),
	fx.Provide(service.NewService),
)
