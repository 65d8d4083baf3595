package payment

import (
	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/payment/adapters"
	"github.com/simpmc/simppay/internal/payment/adapters/sepay"
	"github.com/simpmc/simppay/internal/payment/adapters/tsv"
	"github.com/simpmc/simppay/internal/payment/poller"
	"github.com/simpmc/simppay/internal/payment/registry"
	"github.com/simpmc/simppay/internal/payment/repository"
	paymentservice "github.com/simpmc/simppay/internal/payment/service"
	"github.com/simpmc/simppay/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(registry.NewActive),
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config, log *zap.Logger) *adapters.Registry {
		return adapters.NewRegistry(
			tsv.New(cfg, log),
			sepay.New(cfg, log),
		)
	}),
	fx.Provide(func(cfg config.Config) poller.Config {
		return poller.Config{
			Interval: cfg.PollInterval,
			Timeout:  cfg.PaymentTimeout,
		}
	}),
	fx.Provide(poller.New),
	fx.Invoke(poller.RegisterHooks),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
