package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/simpmc/simppay/internal/aggregate"
	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/events"
	"github.com/simpmc/simppay/internal/ledger"
	"github.com/simpmc/simppay/internal/logger"
	"github.com/simpmc/simppay/internal/migration"
	"github.com/simpmc/simppay/internal/milestone"
	"github.com/simpmc/simppay/internal/observability/metrics"
	"github.com/simpmc/simppay/internal/payment"
	"github.com/simpmc/simppay/internal/ratelimit"
	"github.com/simpmc/simppay/internal/reward"
	"github.com/simpmc/simppay/internal/server"
	"github.com/simpmc/simppay/internal/streak"
	"github.com/simpmc/simppay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,
		events.Module,
		ratelimit.Module,

		// Domain
		ledger.Module,
		aggregate.Module,
		reward.Module,
		milestone.Module,
		streak.Module,
		payment.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
