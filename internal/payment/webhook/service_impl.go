package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"math"
	"strings"

	"github.com/simpmc/simppay/internal/config"
	obsmetrics "github.com/simpmc/simppay/internal/observability/metrics"
	"github.com/simpmc/simppay/internal/payment/adapters/sepay"
	"github.com/simpmc/simppay/internal/payment/domain"
	"github.com/simpmc/simppay/internal/payment/registry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Outcome classifies what the matcher did with a notification.
type Outcome string

const (
	OutcomeMatched Outcome = "matched"
	OutcomeNoMatch Outcome = "no_match"
	OutcomeIgnored Outcome = "ignored"
	OutcomeDropped Outcome = "dropped"
)

// Payload is the Sepay webhook notification body.
type Payload struct {
	ID              int64   `json:"id"`
	Gateway         string  `json:"gateway"`
	TransactionDate string  `json:"transactionDate"`
	AccountNumber   string  `json:"accountNumber"`
	Code            string  `json:"code"`
	Content         string  `json:"content"`
	TransferType    string  `json:"transferType"`
	TransferAmount  float64 `json:"transferAmount"`
	Accumulated     float64 `json:"accumulated"`
	SubAccount      string  `json:"subAccount"`
	ReferenceCode   string  `json:"referenceCode"`
	Description     string  `json:"description"`
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Active     *registry.Active
	PaymentSvc domain.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Service matches inbound transfer notifications against pending bank
// payments and hands winners to the payment state machine.
type Service struct {
	log        *zap.Logger
	cfg        config.SepayConfig
	active     *registry.Active
	paymentSvc domain.Service
	metrics    *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		cfg:        p.Config.Sepay,
		active:     p.Active,
		paymentSvc: p.PaymentSvc,
		metrics:    p.Metrics,
	}
}

// Authorize checks the Apikey header scheme. The caller maps
// ErrMissingAPIKey to 401 and ErrInvalidAPIKey to 403.
func (s *Service) Authorize(header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return domain.ErrMissingAPIKey
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Apikey") {
		return domain.ErrMissingAPIKey
	}

	if s.cfg.WebhookAPIKey == "" {
		return domain.ErrInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.cfg.WebhookAPIKey)) != 1 {
		return domain.ErrInvalidAPIKey
	}
	return nil
}

// Ingest parses and processes one notification. Only inbound transfers are
// considered; everything else is acknowledged and ignored so the provider
// stops retrying.
func (s *Service) Ingest(ctx context.Context, raw []byte) (Outcome, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.observe(string(OutcomeDropped))
		return OutcomeDropped, domain.ErrInvalidPayload
	}
	return s.Process(ctx, payload)
}

func (s *Service) Process(ctx context.Context, payload Payload) (Outcome, error) {
	if !strings.EqualFold(payload.TransferType, "in") {
		s.observe(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	p := s.match(payload)
	if p == nil {
		s.log.Info("no pending payment matches transfer",
			zap.Int64("notification_id", payload.ID),
			zap.String("gateway", payload.Gateway),
			zap.Float64("amount", payload.TransferAmount))
		s.observe(string(OutcomeNoMatch))
		return OutcomeNoMatch, nil
	}

	expected := p.Bank.Amount
	if !sepay.AmountMatches(payload.TransferAmount, expected) {
		if s.cfg.AmountPolicy == config.AmountPolicyStrict {
			s.log.Warn("transfer amount mismatch, dropping notification",
				zap.String("payment_id", p.ID),
				zap.Int64("expected", expected),
				zap.Float64("received", payload.TransferAmount))
			s.observe(string(OutcomeDropped))
			return OutcomeDropped, nil
		}
		s.log.Warn("transfer amount mismatch, crediting received amount",
			zap.String("payment_id", p.ID),
			zap.Int64("expected", expected),
			zap.Float64("received", payload.TransferAmount))
	}

	confirmed := int64(math.Round(payload.TransferAmount))
	status := domain.StatusSuccess
	if confirmed != expected {
		status = domain.StatusSuccessWrongAmount
	}

	if err := s.paymentSvc.Finalize(ctx, p.ID, status, confirmed, "bank transfer confirmed"); err != nil {
		s.observe("error")
		return OutcomeDropped, err
	}

	s.observe(string(OutcomeMatched))
	return OutcomeMatched, nil
}

// match scans pending bank payments for one whose reference code appears in
// the transfer description. Banks rewrite case and concatenate text, so the
// test is a case-insensitive substring check.
func (s *Service) match(payload Payload) *domain.Payment {
	for _, p := range s.active.Snapshot() {
		if p.Kind != domain.KindBanking || p.Bank == nil {
			continue
		}
		if sepay.ContentMatches(payload.Content, p.Bank.ReferenceCode) ||
			sepay.ContentMatches(payload.Description, p.Bank.ReferenceCode) {
			return p
		}
	}
	return nil
}

func (s *Service) observe(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.WebhookRequests.WithLabelValues(outcome).Inc()
}
