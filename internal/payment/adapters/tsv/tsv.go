package tsv

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/payment/domain"
	"go.uber.org/zap"
)

const (
	commandCharging = "charging"
	commandCheck    = "check"
)

// Adapter integrates the thesieuviet card charging API.
type Adapter struct {
	cfg    config.TSVConfig
	client *http.Client
	log    *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg.TSV,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		log:    log.Named("payment.tsv"),
	}
}

func (a *Adapter) Provider() string  { return "thesieuviet" }
func (a *Adapter) Kind() domain.Kind { return domain.KindCard }

func (a *Adapter) configured() bool {
	switch a.cfg.PartnerID {
	case "", "partner_id", "your_partner_id":
		return false
	}
	switch a.cfg.PartnerKey {
	case "", "partner_key", "your_partner_key":
		return false
	}
	return true
}

type request struct {
	Telco     string `json:"telco"`
	Code      string `json:"code"`
	Serial    string `json:"serial"`
	Amount    int64  `json:"amount"`
	RequestID string `json:"request_id"`
	PartnerID string `json:"partner_id"`
	Sign      string `json:"sign"`
	Command   string `json:"command"`
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Value   int64  `json:"value"`
	Amount  int64  `json:"amount"`
}

// Submit sends the card for charging. Credentials are checked up front so a
// misconfigured deployment fails without leaking card codes over the wire.
func (a *Adapter) Submit(ctx context.Context, p *domain.Payment) (domain.SubmitResult, error) {
	if p.Card == nil {
		return domain.SubmitResult{}, domain.ErrInvalidDetail
	}
	if !a.configured() {
		return domain.SubmitResult{}, domain.ErrProviderNotConfigured
	}

	resp, err := a.call(ctx, commandCharging, p)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	status, _ := a.canonical(resp, p.Card.Price)
	return domain.SubmitResult{Status: status, Message: resp.Message}, nil
}

// Poll re-checks a pending card with the provider.
func (a *Adapter) Poll(ctx context.Context, p *domain.Payment) (domain.PollResult, error) {
	if p.Card == nil {
		return domain.PollResult{}, domain.ErrInvalidDetail
	}
	if !a.configured() {
		return domain.PollResult{}, domain.ErrProviderNotConfigured
	}

	resp, err := a.call(ctx, commandCheck, p)
	if err != nil {
		return domain.PollResult{}, err
	}

	status, amount := a.canonical(resp, p.Card.Price)
	return domain.PollResult{Status: status, Amount: amount, Message: resp.Message}, nil
}

// Cancel is not supported; a submitted card cannot be withdrawn.
func (a *Adapter) Cancel(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	_ = p
	return domain.ErrCancelUnsupported
}

func (a *Adapter) call(ctx context.Context, command string, p *domain.Payment) (response, error) {
	body := request{
		Telco:     p.Card.Telco,
		Code:      p.Card.Pin,
		Serial:    p.Card.Serial,
		Amount:    p.Card.Price,
		RequestID: p.ID,
		PartnerID: a.cfg.PartnerID,
		Sign:      Sign(a.cfg.PartnerKey, p.Card.Pin, p.Card.Serial),
		Command:   command,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return response{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return response{}, fmt.Errorf("thesieuviet: unexpected status %d", res.StatusCode)
	}

	var out response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return response{}, err
	}
	return out, nil
}

// canonical maps a provider response to the canonical status plus the
// confirmed amount. Unknown statuses are treated as failures, never as
// pending, so a protocol drift cannot strand payments.
func (a *Adapter) canonical(resp response, declared int64) (domain.Status, int64) {
	confirmed := resp.Value
	if confirmed == 0 {
		confirmed = resp.Amount
	}

	switch strings.ToLower(strings.TrimSpace(resp.Status)) {
	case "success":
		if confirmed > 0 && confirmed != declared {
			return domain.StatusSuccessWrongAmount, confirmed
		}
		return domain.StatusSuccess, declared
	case "pending":
		return domain.StatusPending, 0
	case "wrong_value":
		if confirmed <= 0 {
			a.log.Warn("wrong_value without confirmed amount", zap.Int64("declared", declared))
			confirmed = declared
		}
		return domain.StatusSuccessWrongAmount, confirmed
	case "invalid":
		return domain.StatusInvalid, 0
	default:
		return domain.StatusFailed, 0
	}
}

// Sign computes the request signature the provider verifies.
func Sign(partnerKey, pin, serial string) string {
	sum := md5.Sum([]byte(partnerKey + pin + serial))
	return hex.EncodeToString(sum[:])
}
