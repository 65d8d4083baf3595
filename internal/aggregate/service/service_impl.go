package service

import (
	"context"
	"fmt"
	"time"

	aggregatedomain "github.com/simpmc/simppay/internal/aggregate/domain"
	"github.com/simpmc/simppay/internal/cache"
	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Config    config.Config
	LedgerSvc ledgerdomain.Service
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	ledgerSvc ledgerdomain.Service

	summaryTTL     time.Duration
	leaderboardTTL time.Duration

	summaries    cache.Cache[string, aggregatedomain.Summary]
	leaderboards cache.Cache[string, []aggregatedomain.RankedRow]
}

func NewService(p Params) aggregatedomain.Service {
	return &Service{
		log:            p.Log.Named("aggregate.service"),
		clock:          p.Clock,
		ledgerSvc:      p.LedgerSvc,
		summaryTTL:     p.Config.CacheTTL,
		leaderboardTTL: p.Config.LeaderboardTTL,
		summaries:      cache.NewTTLCacheWithNow[string, aggregatedomain.Summary](p.Clock.Now),
		leaderboards:   cache.NewTTLCacheWithNow[string, []aggregatedomain.RankedRow](p.Clock.Now),
	}
}

// Summary serves from cache and falls through to the ledger on a miss. Stale
// entries expire by TTL; confirmations refresh eagerly via RefreshPlayer.
func (s *Service) Summary(ctx context.Context, playerID string) (aggregatedomain.Summary, error) {
	if cached, ok := s.summaries.Get(playerID); ok {
		return cached, nil
	}
	return s.load(ctx, playerID)
}

// RefreshPlayer recomputes the player's summary right after a confirmation
// so scoreboards pick the new totals up without waiting out the TTL.
func (s *Service) RefreshPlayer(ctx context.Context, playerID string) error {
	_, err := s.load(ctx, playerID)
	return err
}

func (s *Service) load(ctx context.Context, playerID string) (aggregatedomain.Summary, error) {
	totals, err := s.ledgerSvc.PlayerTotals(ctx, playerID)
	if err != nil {
		return aggregatedomain.Summary{}, err
	}
	summary := aggregatedomain.Summary{
		PlayerID:    playerID,
		Totals:      totals,
		RefreshedAt: s.clock.Now().UTC(),
	}
	s.summaries.Set(playerID, summary, s.summaryTTL)
	return summary, nil
}

func (s *Service) Leaderboard(ctx context.Context, window ledgerdomain.Window, limit int) ([]aggregatedomain.RankedRow, error) {
	if limit <= 0 {
		limit = 10
	}
	key := fmt.Sprintf("%s:%d", window, limit)
	if cached, ok := s.leaderboards.Get(key); ok {
		return cached, nil
	}

	rows, err := s.ledgerSvc.Leaderboard(ctx, window, limit)
	if err != nil {
		return nil, err
	}

	ranked := denseRanks(rows)
	s.leaderboards.Set(key, ranked, s.leaderboardTTL)
	return ranked, nil
}

// InvalidateLeaderboard drops all cached rankings. Called on every
// confirmation; the next read recomputes.
func (s *Service) InvalidateLeaderboard() {
	s.leaderboards.Clear()
}

func denseRanks(rows []ledgerdomain.LeaderboardRow) []aggregatedomain.RankedRow {
	ranked := make([]aggregatedomain.RankedRow, 0, len(rows))
	rank := 0
	var prev int64 = -1
	for _, row := range rows {
		if row.Amount != prev {
			rank++
			prev = row.Amount
		}
		ranked = append(ranked, aggregatedomain.RankedRow{
			Rank:     rank,
			PlayerID: row.PlayerID,
			Amount:   row.Amount,
		})
	}
	return ranked
}
