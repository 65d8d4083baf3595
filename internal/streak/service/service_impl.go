package service

import (
	"context"
	"time"

	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/events"
	"github.com/simpmc/simppay/internal/reward"
	streakdomain "github.com/simpmc/simppay/internal/streak/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Config     config.Config
	Dispatcher reward.Dispatcher
	Tiers      []streakdomain.Tier
	Bus        *events.Bus `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	loc        *time.Location
	dispatcher reward.Dispatcher
	tiers      []streakdomain.Tier
	bus        *events.Bus
}

func NewService(p Params) streakdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("streak.service"),
		clock:      p.Clock,
		loc:        p.Config.Location(),
		dispatcher: p.Dispatcher,
		tiers:      p.Tiers,
		bus:        p.Bus,
	}
}

// Record applies one confirmed payment to the player's streak. The caller
// already sequences writes per player, so read-modify-write here is safe.
func (s *Service) Record(ctx context.Context, playerID string) (streakdomain.Result, error) {
	now := s.clock.Now()
	today := s.dayStart(now)

	streak, found, err := s.find(ctx, playerID)
	if err != nil {
		return streakdomain.Result{}, err
	}

	var result streakdomain.Result
	switch {
	case !found:
		streak = streakdomain.Streak{
			PlayerID: playerID,
			Current:  1,
			Best:     1,
			LastDay:  today,
		}
		result = streakdomain.Result{Current: 1, Best: 1, Advanced: true}

	case streak.LastDay.Equal(today):
		// Second payment today keeps the streak where it is.
		return streakdomain.Result{Current: streak.Current, Best: streak.Best}, nil

	case s.dayNumber(today)-s.dayNumber(streak.LastDay) == 1:
		streak.Current++
		if streak.Current > streak.Best {
			streak.Best = streak.Current
		}
		streak.LastDay = today
		result = streakdomain.Result{Current: streak.Current, Best: streak.Best, Advanced: true}

	default:
		// Gap of two or more days. The run restarts and tier rewards
		// re-arm; the old best survives for bragging rights.
		previousBest := streak.Best
		streak.Current = 1
		streak.LastDay = today
		streak.LastRewardTier = 0
		result = streakdomain.Result{
			Current:      1,
			Best:         streak.Best,
			Broken:       true,
			PreviousBest: previousBest,
		}
	}

	s.applyTiers(ctx, &streak)
	streak.UpdatedAt = now.UTC()

	if err := s.save(ctx, streak); err != nil {
		return streakdomain.Result{}, err
	}

	s.publishResult(ctx, playerID, result, now)
	return result, nil
}

func (s *Service) Get(ctx context.Context, playerID string) (streakdomain.Streak, error) {
	streak, found, err := s.find(ctx, playerID)
	if err != nil {
		return streakdomain.Streak{}, err
	}
	if !found {
		return streakdomain.Streak{PlayerID: playerID}, nil
	}
	return streak, nil
}

// applyTiers pays every tier the run has newly reached. LastRewardTier only
// moves forward within a run, so each tier pays once until the streak
// breaks.
func (s *Service) applyTiers(ctx context.Context, streak *streakdomain.Streak) {
	for _, tier := range s.tiers {
		if tier.Days > streak.Current || tier.Days <= streak.LastRewardTier {
			continue
		}
		if err := s.dispatcher.Dispatch(ctx, streak.PlayerID, tier.Commands); err != nil {
			s.log.Error("streak tier dispatch failed",
				zap.String("player_id", streak.PlayerID),
				zap.Int("tier_days", tier.Days),
				zap.Error(err))
		}
		streak.LastRewardTier = tier.Days
	}
}

func (s *Service) find(ctx context.Context, playerID string) (streakdomain.Streak, bool, error) {
	var streak streakdomain.Streak
	err := s.db.WithContext(ctx).Raw(
		`SELECT player_id, current, best, last_day, last_reward_tier, updated_at
		 FROM player_streaks
		 WHERE player_id = ?
		 LIMIT 1`,
		playerID,
	).Scan(&streak).Error
	if err != nil {
		return streakdomain.Streak{}, false, err
	}
	return streak, streak.PlayerID != "", nil
}

func (s *Service) save(ctx context.Context, streak streakdomain.Streak) error {
	return s.db.WithContext(ctx).Exec(
		`INSERT INTO player_streaks (player_id, current, best, last_day, last_reward_tier, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (player_id) DO UPDATE SET
			current = EXCLUDED.current,
			best = EXCLUDED.best,
			last_day = EXCLUDED.last_day,
			last_reward_tier = EXCLUDED.last_reward_tier,
			updated_at = EXCLUDED.updated_at`,
		streak.PlayerID,
		streak.Current,
		streak.Best,
		streak.LastDay,
		streak.LastRewardTier,
		streak.UpdatedAt,
	).Error
}

func (s *Service) publishResult(ctx context.Context, playerID string, result streakdomain.Result, now time.Time) {
	if s.bus == nil {
		return
	}
	if result.Broken {
		s.bus.Publish(ctx, events.Event{
			Type:     events.TypeStreakBroken,
			PlayerID: playerID,
			Days:     result.PreviousBest,
			At:       now.UTC(),
		})
	}
	if result.Advanced {
		s.bus.Publish(ctx, events.Event{
			Type:     events.TypeStreakAdvanced,
			PlayerID: playerID,
			Days:     result.Current,
			At:       now.UTC(),
		})
	}
}

// dayStart is the local midnight of the instant, stored as UTC.
func (s *Service) dayStart(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc).UTC()
}

// dayNumber counts local calendar days so that day math survives DST and
// timezone offsets.
func (s *Service) dayNumber(dayStart time.Time) int64 {
	local := dayStart.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}
