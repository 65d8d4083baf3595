package service

import (
	"context"
	"strings"

	aggregatedomain "github.com/simpmc/simppay/internal/aggregate/domain"
	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/events"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	milestonedomain "github.com/simpmc/simppay/internal/milestone/domain"
	obsmetrics "github.com/simpmc/simppay/internal/observability/metrics"
	"github.com/simpmc/simppay/internal/payment/adapters"
	"github.com/simpmc/simppay/internal/payment/domain"
	"github.com/simpmc/simppay/internal/payment/poller"
	"github.com/simpmc/simppay/internal/payment/registry"
	"github.com/simpmc/simppay/internal/ratelimit"
	streakdomain "github.com/simpmc/simppay/internal/streak/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Config    config.Config
	Active    *registry.Active
	Adapters  *adapters.Registry
	Repo      domain.Repository
	Poller    *poller.Poller
	Sequencer ratelimit.Sequencer

	LedgerSvc    ledgerdomain.Service
	AggregateSvc aggregatedomain.Service `optional:"true"`
	MilestoneSvc milestonedomain.Service `optional:"true"`
	StreakSvc    streakdomain.Service    `optional:"true"`
	Bus          *events.Bus             `optional:"true"`
	Metrics      *obsmetrics.Metrics     `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	cfg       config.Config
	active    *registry.Active
	adapters  *adapters.Registry
	repo      domain.Repository
	poller    *poller.Poller
	sequencer ratelimit.Sequencer

	ledgerSvc    ledgerdomain.Service
	aggregateSvc aggregatedomain.Service
	milestoneSvc milestonedomain.Service
	streakSvc    streakdomain.Service
	bus          *events.Bus
	metrics      *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		clock:        p.Clock,
		cfg:          p.Config,
		active:       p.Active,
		adapters:     p.Adapters,
		repo:         p.Repo,
		poller:       p.Poller,
		sequencer:    p.Sequencer,
		ledgerSvc:    p.LedgerSvc,
		aggregateSvc: p.AggregateSvc,
		milestoneSvc: p.MilestoneSvc,
		streakSvc:    p.StreakSvc,
		bus:          p.Bus,
		metrics:      p.Metrics,
	}
}

func (s *Service) CreateCard(ctx context.Context, in domain.CreateCardInput) (*domain.Payment, error) {
	playerID := strings.TrimSpace(in.PlayerID)
	if playerID == "" {
		return nil, domain.ErrInvalidPlayer
	}

	card := &domain.CardDetail{
		Telco:  strings.ToUpper(strings.TrimSpace(in.Telco)),
		Serial: strings.TrimSpace(in.Serial),
		Pin:    strings.TrimSpace(in.Pin),
		Price:  in.Price,
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}

	adapter, err := s.adapters.ForKind(domain.KindCard)
	if err != nil {
		return nil, err
	}

	p := &domain.Payment{
		ID:        domain.NewCardPaymentID(card.Serial),
		PlayerID:  playerID,
		Kind:      domain.KindCard,
		Amount:    card.Price,
		Status:    domain.StatusCreated,
		Card:      card,
		CreatedAt: s.clock.Now().UTC(),
	}

	// A card already charged stays charged. Re-submitting the same serial
	// reports EXISTS without touching the provider. Failed attempts do not
	// count; a corrected pin for the same serial goes back to the provider.
	if rec, err := s.repo.Find(ctx, s.db, p.ID); err != nil {
		return nil, err
	} else if rec != nil && domain.Status(rec.Status).IsSuccess() {
		p.Status = domain.StatusExists
		p.Message = "card already submitted"
		return p, nil
	}

	if err := s.active.Put(p); err != nil {
		return nil, err
	}

	res, err := adapter.Submit(ctx, p)
	if err != nil {
		s.active.Claim(p.ID)
		return nil, err
	}

	p.Status = res.Status
	p.Message = res.Message
	s.observeCreated(p.Kind)

	if res.Status.IsTerminal() {
		amount := int64(0)
		if res.Status.IsSuccess() {
			amount = card.Price
		}
		if err := s.Finalize(ctx, p.ID, res.Status, amount, res.Message); err != nil {
			return nil, err
		}
		return p, nil
	}

	p.Status = domain.StatusPending
	s.observeActive(1)
	s.poller.Watch(p, adapter, s)
	return p, nil
}

func (s *Service) CreateBank(ctx context.Context, in domain.CreateBankInput) (*domain.Payment, error) {
	playerID := strings.TrimSpace(in.PlayerID)
	if playerID == "" {
		return nil, domain.ErrInvalidPlayer
	}
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	adapter, err := s.adapters.ForKind(domain.KindBanking)
	if err != nil {
		return nil, err
	}

	// The pending-intent check and the registry insert run under the
	// player's sequence lock so concurrent requests cannot both pass the
	// check and open two transfers.
	var out *domain.Payment
	err = s.sequencer.Do(ctx, "player:"+playerID, func(ctx context.Context) error {
		// One pending transfer per player. A repeated request returns the
		// existing intent so the client can re-render the same QR code.
		if existing := s.pendingBank(playerID); existing != nil {
			out = existing
			return nil
		}

		p := &domain.Payment{
			ID:       domain.NewBankPaymentID(),
			PlayerID: playerID,
			Kind:     domain.KindBanking,
			Amount:   in.Amount,
			Status:   domain.StatusCreated,
			Bank: &domain.BankDetail{
				Amount: in.Amount,
			},
			CreatedAt: s.clock.Now().UTC(),
		}

		if _, err := adapter.Submit(ctx, p); err != nil {
			return err
		}

		if err := s.active.Put(p); err != nil {
			return err
		}

		p.Status = domain.StatusPending
		s.observeCreated(p.Kind)
		s.observeActive(1)
		s.poller.Watch(p, adapter, s)
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelBank withdraws the player's pending transfer, typically when the
// player disconnects before paying.
func (s *Service) CancelBank(ctx context.Context, playerID string) error {
	p := s.pendingBank(strings.TrimSpace(playerID))
	if p == nil {
		return domain.ErrPaymentNotFound
	}
	return s.Finalize(ctx, p.ID, domain.StatusCancelled, 0, "cancelled by player")
}

func (s *Service) pendingBank(playerID string) *domain.Payment {
	for _, p := range s.active.Snapshot() {
		if p.Kind == domain.KindBanking && p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Payment, error) {
	if p, ok := s.active.Get(id); ok {
		return p, nil
	}

	rec, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return &domain.Payment{
		ID:              rec.ID,
		PlayerID:        rec.PlayerID,
		Kind:            domain.Kind(rec.Kind),
		Amount:          rec.DeclaredAmount,
		ConfirmedAmount: rec.ConfirmedAmount,
		Status:          domain.Status(rec.Status),
		Message:         rec.Message,
		CreatedAt:       rec.CreatedAt,
	}, nil
}

func (s *Service) History(ctx context.Context, playerID string, limit int) ([]domain.PaymentRecord, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, domain.ErrInvalidPlayer
	}
	return s.repo.History(ctx, s.db, playerID, limit)
}

// Finalize applies a terminal transition. The registry claim is the
// linearization point: of all concurrent callers for one payment ID, exactly
// one gets past it, so the ledger write and the reward pipeline run once.
func (s *Service) Finalize(ctx context.Context, id string, status domain.Status, confirmedAmount int64, message string) error {
	if !status.IsTerminal() {
		return domain.ErrInvalidDetail
	}

	p, ok := s.active.Claim(id)
	if !ok {
		s.log.Debug("finalize lost the claim", zap.String("payment_id", id))
		return nil
	}

	s.observeActive(-1)
	s.observeFinalized(p.Kind, status)

	now := s.clock.Now().UTC()
	p.Status = status
	p.Message = message
	if status.IsSuccess() && confirmedAmount <= 0 {
		confirmedAmount = p.Amount
	}
	if !status.IsSuccess() {
		confirmedAmount = 0
	}
	p.ConfirmedAmount = confirmedAmount

	provider := ""
	if adapter, err := s.adapters.ForKind(p.Kind); err == nil {
		provider = adapter.Provider()
	}

	rec := &domain.PaymentRecord{
		ID:              p.ID,
		PlayerID:        p.PlayerID,
		Kind:            string(p.Kind),
		Provider:        provider,
		DeclaredAmount:  p.Amount,
		ConfirmedAmount: confirmedAmount,
		Status:          string(status),
		Message:         message,
		CreatedAt:       p.CreatedAt,
		FinalizedAt:     now,
	}
	if _, err := s.repo.Insert(ctx, s.db, rec); err != nil {
		s.log.Error("persist payment record failed",
			zap.String("payment_id", p.ID), zap.Error(err))
		return err
	}

	if status == domain.StatusCancelled {
		if adapter, err := s.adapters.ForKind(p.Kind); err == nil {
			if err := adapter.Cancel(ctx, p); err != nil && err != domain.ErrCancelUnsupported {
				s.log.Warn("provider cancel failed",
					zap.String("payment_id", p.ID), zap.Error(err))
			}
		}
	}

	if !status.IsSuccess() {
		s.publish(ctx, events.Event{
			Type:      events.TypePaymentFailed,
			PaymentID: p.ID,
			PlayerID:  p.PlayerID,
			Kind:      string(p.Kind),
			Status:    string(status),
			Message:   message,
			At:        now,
		})
		return nil
	}

	return s.confirm(ctx, p)
}

// confirm runs the credit pipeline for a successful payment. Writes for one
// player are sequenced so concurrent confirmations cannot interleave their
// ledger, streak, and milestone updates.
func (s *Service) confirm(ctx context.Context, p *domain.Payment) error {
	start := s.clock.Now()

	err := s.sequencer.Do(ctx, "player:"+p.PlayerID, func(ctx context.Context) error {
		inserted, err := s.ledgerSvc.Append(ctx, ledgerdomain.Entry{
			PaymentID: p.ID,
			PlayerID:  p.PlayerID,
			Amount:    p.ConfirmedAmount,
			CreatedAt: s.clock.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			// A previous confirmation already credited this payment.
			s.log.Warn("ledger entry already present, skipping rewards",
				zap.String("payment_id", p.ID))
			return nil
		}

		if s.aggregateSvc != nil {
			if err := s.aggregateSvc.RefreshPlayer(ctx, p.PlayerID); err != nil {
				s.log.Warn("aggregate refresh failed",
					zap.String("player_id", p.PlayerID), zap.Error(err))
			}
			s.aggregateSvc.InvalidateLeaderboard()
		}

		if s.streakSvc != nil {
			if _, err := s.streakSvc.Record(ctx, p.PlayerID); err != nil {
				s.log.Error("streak update failed",
					zap.String("player_id", p.PlayerID), zap.Error(err))
			}
		}

		if s.milestoneSvc != nil {
			if err := s.milestoneSvc.EvaluatePlayer(ctx, p.PlayerID); err != nil {
				s.log.Error("player milestone evaluation failed",
					zap.String("player_id", p.PlayerID), zap.Error(err))
			}
			if err := s.milestoneSvc.EvaluateServer(ctx); err != nil {
				s.log.Error("server milestone evaluation failed", zap.Error(err))
			}
		}

		s.publish(ctx, events.Event{
			Type:      events.TypePaymentSucceeded,
			PaymentID: p.ID,
			PlayerID:  p.PlayerID,
			Kind:      string(p.Kind),
			Status:    string(p.Status),
			Amount:    p.ConfirmedAmount,
			Message:   p.Message,
			At:        s.clock.Now().UTC(),
		})
		return nil
	})

	if s.metrics != nil {
		s.metrics.ConfirmDuration.Observe(s.clock.Now().Sub(start).Seconds())
	}
	return err
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, e)
}

func (s *Service) observeCreated(kind domain.Kind) {
	if s.metrics == nil {
		return
	}
	s.metrics.PaymentsCreated.WithLabelValues(string(kind)).Inc()
}

func (s *Service) observeFinalized(kind domain.Kind, status domain.Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.PaymentsFinalized.WithLabelValues(string(kind), string(status)).Inc()
}

func (s *Service) observeActive(delta float64) {
	if s.metrics == nil {
		return
	}
	s.metrics.ActivePayments.Add(delta)
}
