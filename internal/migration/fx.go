package migration

import (
	"github.com/simpmc/simppay/internal/config"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	milestonedomain "github.com/simpmc/simppay/internal/milestone/domain"
	paymentdomain "github.com/simpmc/simppay/internal/payment/domain"
	streakdomain "github.com/simpmc/simppay/internal/streak/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// sqlite and mysql fall back to schema sync from the entities.
		return AutoMigrate(conn)
	}),
)

// AutoMigrate syncs the schema from the gorm entities. Tests use it against
// in-memory sqlite.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&paymentdomain.PaymentRecord{},
		&ledgerdomain.Entry{},
		&milestonedomain.Completion{},
		&streakdomain.Streak{},
	)
}
