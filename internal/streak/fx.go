package streak

import (
	appconfig "github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/streak/domain"
	"github.com/simpmc/simppay/internal/streak/service"
	"go.uber.org/fx"
)

var Module = fx.Module("streak.service",
	fx.Provide(func(cfg appconfig.Config) ([]domain.Tier, error) {
		return LoadTiers(cfg.StreaksFile)
	}),
	fx.Provide(service.NewService),
)
