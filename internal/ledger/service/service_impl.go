package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	loc   *time.Location
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		loc:   p.Config.Location(),
	}
}

// Append writes the credit if no entry for the payment exists yet. The
// unique payment_id index backs the ON CONFLICT clause, so a lost race means
// rows affected is zero and the caller skips rewards.
func (s *Service) Append(ctx context.Context, e ledgerdomain.Entry) (bool, error) {
	if e.PaymentID == "" || e.PlayerID == "" || e.Amount <= 0 {
		return false, ledgerdomain.ErrInvalidEntry
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now().UTC()
	}

	res := s.db.WithContext(ctx).Exec(
		`INSERT INTO payment_logs (id, payment_id, player_id, amount, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (payment_id) DO NOTHING`,
		s.genID.Generate().Int64(),
		e.PaymentID,
		e.PlayerID,
		e.Amount,
		e.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		s.log.Warn("duplicate ledger append ignored", zap.String("payment_id", e.PaymentID))
		return false, nil
	}
	return true, nil
}

// PlayerTotals computes every window sum in a single conditional aggregation
// pass over the player's entries.
func (s *Service) PlayerTotals(ctx context.Context, playerID string) (ledgerdomain.WindowTotals, error) {
	daily, weekly, monthly, yearly := s.windowStarts()

	var totals ledgerdomain.WindowTotals
	err := s.db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(amount), 0) AS total,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount ELSE 0 END), 0) AS daily,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount ELSE 0 END), 0) AS weekly,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount ELSE 0 END), 0) AS monthly,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount ELSE 0 END), 0) AS yearly
		 FROM payment_logs
		 WHERE player_id = ?`,
		daily, weekly, monthly, yearly,
		playerID,
	).Scan(&totals).Error
	if err != nil {
		return ledgerdomain.WindowTotals{}, err
	}
	return totals, nil
}

// ServerTotals is PlayerTotals over every player.
func (s *Service) ServerTotals(ctx context.Context) (ledgerdomain.WindowTotals, error) {
	daily, weekly, monthly, yearly := s.windowStarts()

	var totals ledgerdomain.WindowTotals
	err := s.db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(amount), 0) AS total,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount ELSE 0 END), 0) AS daily,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount ELSE 0 END), 0) AS weekly,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount ELSE 0 END), 0) AS monthly,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount ELSE 0 END), 0) AS yearly
		 FROM payment_logs`,
		daily, weekly, monthly, yearly,
	).Scan(&totals).Error
	if err != nil {
		return ledgerdomain.WindowTotals{}, err
	}
	return totals, nil
}

func (s *Service) Leaderboard(ctx context.Context, window ledgerdomain.Window, limit int) ([]ledgerdomain.LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []ledgerdomain.LeaderboardRow
	var err error
	if window == ledgerdomain.WindowAllTime {
		err = s.db.WithContext(ctx).Raw(
			`SELECT player_id, COALESCE(SUM(amount), 0) AS amount
			 FROM payment_logs
			 GROUP BY player_id
			 ORDER BY amount DESC, player_id ASC
			 LIMIT ?`,
			limit,
		).Scan(&rows).Error
	} else {
		start, ok := s.windowStart(window)
		if !ok {
			return nil, ledgerdomain.ErrInvalidWindow
		}
		err = s.db.WithContext(ctx).Raw(
			`SELECT player_id, COALESCE(SUM(amount), 0) AS amount
			 FROM payment_logs
			 WHERE created_at >= ?
			 GROUP BY player_id
			 ORDER BY amount DESC, player_id ASC
			 LIMIT ?`,
			start, limit,
		).Scan(&rows).Error
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// windowStarts returns the UTC instants where the calendar windows begin in
// the configured timezone.
func (s *Service) windowStarts() (daily, weekly, monthly, yearly time.Time) {
	now := s.clock.Now()
	daily = ledgerdomain.WindowStart(ledgerdomain.WindowDaily, now, s.loc)
	weekly = ledgerdomain.WindowStart(ledgerdomain.WindowWeekly, now, s.loc)
	monthly = ledgerdomain.WindowStart(ledgerdomain.WindowMonthly, now, s.loc)
	yearly = ledgerdomain.WindowStart(ledgerdomain.WindowYearly, now, s.loc)
	return daily, weekly, monthly, yearly
}

func (s *Service) windowStart(window ledgerdomain.Window) (time.Time, bool) {
	switch window {
	case ledgerdomain.WindowDaily, ledgerdomain.WindowWeekly,
		ledgerdomain.WindowMonthly, ledgerdomain.WindowYearly:
		return ledgerdomain.WindowStart(window, s.clock.Now(), s.loc), true
	default:
		return time.Time{}, false
	}
}
