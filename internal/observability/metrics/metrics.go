package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments for the payment engine.
type Metrics struct {
	Registry *prometheus.Registry

	PaymentsCreated   *prometheus.CounterVec
	PaymentsFinalized *prometheus.CounterVec
	PollTicks         *prometheus.CounterVec
	WebhookRequests   *prometheus.CounterVec
	RewardsDispatched *prometheus.CounterVec
	ConfirmDuration   prometheus.Histogram
	ActivePayments    prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		PaymentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simppay_payments_created_total",
			Help: "Payments accepted by the state machine, by kind.",
		}, []string{"kind"}),
		PaymentsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simppay_payments_finalized_total",
			Help: "Terminal transitions, by kind and terminal status.",
		}, []string{"kind", "status"}),
		PollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simppay_poll_ticks_total",
			Help: "Provider poll attempts, by provider and canonical status.",
		}, []string{"provider", "status"}),
		WebhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simppay_webhook_requests_total",
			Help: "Inbound webhook notifications, by outcome.",
		}, []string{"outcome"}),
		RewardsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simppay_rewards_dispatched_total",
			Help: "Reward action batches dispatched, by scope.",
		}, []string{"scope"}),
		ConfirmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simppay_confirm_duration_seconds",
			Help:    "Duration of the confirm pipeline (ledger, cache, rewards).",
			Buckets: prometheus.DefBuckets,
		}),
		ActivePayments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simppay_active_payments",
			Help: "Payments currently awaiting confirmation.",
		}),
	}

	registry.MustRegister(
		m.PaymentsCreated,
		m.PaymentsFinalized,
		m.PollTicks,
		m.WebhookRequests,
		m.RewardsDispatched,
		m.ConfirmDuration,
		m.ActivePayments,
	)

	return m
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
