package poller

import (
	"context"
	"sync"
	"time"

	"github.com/simpmc/simppay/internal/clock"
	obsmetrics "github.com/simpmc/simppay/internal/observability/metrics"
	"github.com/simpmc/simppay/internal/payment/domain"
	"github.com/simpmc/simppay/internal/payment/registry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Sink receives terminal transitions discovered by polling. The payment
// service implements it; keeping it as an interface here avoids a package
// cycle and lets tests capture transitions directly.
type Sink interface {
	Finalize(ctx context.Context, id string, status domain.Status, confirmedAmount int64, message string) error
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Active  *registry.Active
	Metrics *obsmetrics.Metrics `optional:"true"`
	Config  Config              `optional:"true"`
}

// Poller drives provider status checks for in-flight payments. One goroutine
// per watched payment; the goroutine exits as soon as the payment leaves the
// registry, whichever actor removed it.
type Poller struct {
	log     *zap.Logger
	clock   clock.Clock
	active  *registry.Active
	metrics *obsmetrics.Metrics
	cfg     Config

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func New(p Params) *Poller {
	root, cancel := context.WithCancel(context.Background())
	return &Poller{
		log:     p.Log.Named("payment.poller"),
		clock:   p.Clock,
		active:  p.Active,
		metrics: p.Metrics,
		cfg:     p.Config.withDefaults(),
		root:    root,
		stop:    cancel,
	}
}

// Watch starts polling the payment until it reaches a terminal status,
// expires, or disappears from the registry.
func (w *Poller) Watch(p *domain.Payment, adapter domain.Adapter, sink Sink) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(p, adapter, sink)
	}()
}

func (w *Poller) run(p *domain.Payment, adapter domain.Adapter, sink Sink) {
	log := w.log.With(
		zap.String("payment_id", p.ID),
		zap.String("player_id", p.PlayerID),
		zap.String("provider", adapter.Provider()),
	)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.root.Done():
			return
		case <-ticker.C:
		}

		// Someone else (webhook, cancel, another tick) already claimed it.
		if !w.active.Contains(p.ID) {
			return
		}

		if w.clock.Now().Sub(p.CreatedAt) >= w.cfg.Timeout {
			if err := sink.Finalize(w.root, p.ID, domain.StatusExpired, 0, "payment timed out"); err != nil {
				log.Warn("expiry finalize failed", zap.Error(err))
			}
			return
		}

		res, err := adapter.Poll(w.root, p)
		if err != nil {
			w.observe(adapter.Provider(), "error")
			log.Warn("provider poll failed", zap.Error(err))
			continue
		}
		w.observe(adapter.Provider(), string(res.Status))

		if !res.Status.IsTerminal() {
			continue
		}

		if err := sink.Finalize(w.root, p.ID, res.Status, res.Amount, res.Message); err != nil {
			log.Warn("finalize failed", zap.Error(err))
		}
		return
	}
}

func (w *Poller) observe(provider, status string) {
	if w.metrics == nil {
		return
	}
	w.metrics.PollTicks.WithLabelValues(provider, status).Inc()
}

// Shutdown cancels all watch goroutines and waits for them to exit.
func (w *Poller) Shutdown(ctx context.Context) error {
	w.stop()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func RegisterHooks(lc fx.Lifecycle, w *Poller) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return w.Shutdown(ctx)
		},
	})
}
