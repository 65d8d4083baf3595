package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/events"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	milestonedomain "github.com/simpmc/simppay/internal/milestone/domain"
	obsmetrics "github.com/simpmc/simppay/internal/observability/metrics"
	"github.com/simpmc/simppay/internal/reward"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	LedgerSvc   ledgerdomain.Service
	Repo        milestonedomain.Repository
	Dispatcher  reward.Dispatcher
	Presence    reward.Presence
	Definitions []milestonedomain.Definition
	Bus         *events.Bus         `optional:"true"`
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	loc        *time.Location
	ledgerSvc  ledgerdomain.Service
	repo       milestonedomain.Repository
	dispatcher reward.Dispatcher
	presence   reward.Presence
	defs       []milestonedomain.Definition
	bus        *events.Bus
	metrics    *obsmetrics.Metrics
}

func NewService(p Params) milestonedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("milestone.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		loc:        p.Config.Location(),
		ledgerSvc:  p.LedgerSvc,
		repo:       p.Repo,
		dispatcher: p.Dispatcher,
		presence:   p.Presence,
		defs:       p.Definitions,
		bus:        p.Bus,
		metrics:    p.Metrics,
	}
}

func (s *Service) Definitions() []milestonedomain.Definition {
	return s.defs
}

// EvaluatePlayer re-derives the player's balances from the ledger and walks
// every player-scope definition. One large credit can satisfy several
// thresholds in the same pass; each is rewarded independently.
func (s *Service) EvaluatePlayer(ctx context.Context, playerID string) error {
	totals, err := s.ledgerSvc.PlayerTotals(ctx, playerID)
	if err != nil {
		return err
	}

	for _, def := range s.defs {
		if def.Scope != milestonedomain.ScopePlayer {
			continue
		}
		if totals.For(def.Window) < def.Amount {
			continue
		}
		if err := s.complete(ctx, def, playerID); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateServer does the same over the server-wide balances. Rewards fan
// out to every online player.
func (s *Service) EvaluateServer(ctx context.Context) error {
	totals, err := s.ledgerSvc.ServerTotals(ctx)
	if err != nil {
		return err
	}

	for _, def := range s.defs {
		if def.Scope != milestonedomain.ScopeServer {
			continue
		}
		if totals.For(def.Window) < def.Amount {
			continue
		}
		if err := s.complete(ctx, def, milestonedomain.ServerSubject); err != nil {
			return err
		}
	}
	return nil
}

// complete marks the milestone done for the period and, only when this call
// is the one that wrote the mark, dispatches the rewards. The mark is
// written first; a dispatch failure is logged, never retried with a second
// reward.
func (s *Service) complete(ctx context.Context, def milestonedomain.Definition, subject string) error {
	now := s.clock.Now()
	inserted, err := s.repo.MarkCompleted(ctx, s.db, &milestonedomain.Completion{
		ID:          s.genID.Generate().Int64(),
		MilestoneID: def.ID,
		Subject:     subject,
		Window:      string(def.Window),
		WindowStart: ledgerdomain.WindowStart(def.Window, now, s.loc),
		CompletedAt: now.UTC(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	if def.Scope == milestonedomain.ScopeServer {
		for _, playerID := range s.presence.Online() {
			if err := s.dispatcher.Dispatch(ctx, playerID, def.Commands); err != nil {
				s.log.Error("server milestone dispatch failed",
					zap.String("milestone_id", def.ID),
					zap.String("player_id", playerID),
					zap.Error(err))
			}
		}
		s.observe("server")
		s.publish(ctx, events.Event{
			Type:      events.TypeServerMilestoneReached,
			Window:    string(def.Window),
			Threshold: def.Amount,
			Message:   def.Message,
			At:        now.UTC(),
		})
		return nil
	}

	if err := s.dispatcher.Dispatch(ctx, subject, def.Commands); err != nil {
		s.log.Error("milestone dispatch failed",
			zap.String("milestone_id", def.ID),
			zap.String("player_id", subject),
			zap.Error(err))
	}
	s.observe("player")
	s.publish(ctx, events.Event{
		Type:      events.TypePlayerMilestoneReached,
		PlayerID:  subject,
		Window:    string(def.Window),
		Threshold: def.Amount,
		Message:   def.Message,
		At:        now.UTC(),
	})
	return nil
}

// ResetWindow clears completion marks for a timed window so its milestones
// re-arm immediately instead of waiting for the period to roll over.
func (s *Service) ResetWindow(ctx context.Context, window ledgerdomain.Window) (int64, error) {
	if window == ledgerdomain.WindowAllTime {
		return 0, milestonedomain.ErrInvalidWindow
	}
	deleted, err := s.repo.ResetWindow(ctx, s.db, string(window))
	if err != nil {
		return 0, err
	}
	s.log.Info("milestone window reset",
		zap.String("window", string(window)),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *Service) observe(scope string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RewardsDispatched.WithLabelValues(scope).Inc()
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, e)
}
