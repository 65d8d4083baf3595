package sepay

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/payment/domain"
	"go.uber.org/zap"
)

const (
	refCodeLength  = 10
	refCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// amountTolerance absorbs float formatting noise in the provider's
	// transaction amounts.
	amountTolerance = 0.01
)

// Adapter integrates Sepay bank transfers. Submission is local (we mint a
// reference code and a QR string); confirmation arrives via webhook or via
// the transactions/list poll when an API token is configured.
type Adapter struct {
	cfg    config.SepayConfig
	client *http.Client
	log    *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg.Sepay,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		log:    log.Named("payment.sepay"),
	}
}

func (a *Adapter) Provider() string  { return "sepay" }
func (a *Adapter) Kind() domain.Kind { return domain.KindBanking }

// Submit assigns the reference code and QR string. No provider call is made;
// the transfer only exists once the player sends money with the code in the
// description.
func (a *Adapter) Submit(ctx context.Context, p *domain.Payment) (domain.SubmitResult, error) {
	_ = ctx
	if p.Bank == nil {
		return domain.SubmitResult{}, domain.ErrInvalidDetail
	}

	code, err := NewReferenceCode(a.cfg.RefPrefix)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	p.Bank.ReferenceCode = code
	p.Bank.QRString = a.qrString(p.Bank.Amount, code)

	return domain.SubmitResult{Status: domain.StatusPending}, nil
}

type transaction struct {
	ID            string `json:"id"`
	AccountNumber string `json:"account_number"`
	AmountIn      string `json:"amount_in"`
	Content       string `json:"transaction_content"`
	RefCode       string `json:"reference_number"`
}

type listResponse struct {
	Status       int           `json:"status"`
	Transactions []transaction `json:"transactions"`
}

// Poll scans recent inbound transactions for the payment's reference code.
// Without an API token the adapter is webhook-only and reports pending.
func (a *Adapter) Poll(ctx context.Context, p *domain.Payment) (domain.PollResult, error) {
	if p.Bank == nil || p.Bank.ReferenceCode == "" {
		return domain.PollResult{}, domain.ErrInvalidDetail
	}
	if a.cfg.APIToken == "" {
		return domain.PollResult{Status: domain.StatusPending}, nil
	}

	q := url.Values{}
	q.Set("account_number", a.cfg.AccountNumber)
	q.Set("amount_in", strconv.FormatInt(p.Bank.Amount, 10))
	q.Set("limit", "10")

	endpoint := strings.TrimRight(a.cfg.Endpoint, "/") + "/transactions/list?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PollResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIToken)

	res, err := a.client.Do(req)
	if err != nil {
		return domain.PollResult{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return domain.PollResult{}, fmt.Errorf("sepay: unexpected status %d", res.StatusCode)
	}

	var out listResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return domain.PollResult{}, err
	}

	for _, tx := range out.Transactions {
		if !ContentMatches(tx.Content, p.Bank.ReferenceCode) {
			continue
		}
		amount, ok := parseAmount(tx.AmountIn)
		if !ok {
			a.log.Warn("unparseable transaction amount",
				zap.String("transaction_id", tx.ID),
				zap.String("amount_in", tx.AmountIn))
			continue
		}
		status := domain.StatusSuccess
		if !AmountMatches(amount, p.Bank.Amount) {
			status = domain.StatusSuccessWrongAmount
			a.log.Warn("transfer amount differs from expected",
				zap.String("reference_code", p.Bank.ReferenceCode),
				zap.Float64("received", amount),
				zap.Int64("expected", p.Bank.Amount))
		}
		return domain.PollResult{Status: status, Amount: int64(math.Round(amount))}, nil
	}

	return domain.PollResult{Status: domain.StatusPending}, nil
}

// Cancel is local; the pending transfer is simply forgotten.
func (a *Adapter) Cancel(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	_ = p
	return nil
}

// qrString builds the VietQR image URL the client renders for the player.
func (a *Adapter) qrString(amount int64, refCode string) string {
	q := url.Values{}
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("addInfo", refCode)
	return fmt.Sprintf("https://img.vietqr.io/image/%s-%s-compact2.png?%s",
		a.cfg.BankBIN, a.cfg.AccountNumber, q.Encode())
}

// NewReferenceCode returns prefix plus 10 uppercase alphanumerics drawn from
// crypto/rand.
func NewReferenceCode(prefix string) (string, error) {
	var b strings.Builder
	b.WriteString(prefix)
	max := big.NewInt(int64(len(refCodeCharset)))
	for i := 0; i < refCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(refCodeCharset[n.Int64()])
	}
	return b.String(), nil
}

// ContentMatches reports whether the transfer description carries the
// reference code. Banks mangle case and pad descriptions, so the match is a
// case-insensitive substring test.
func ContentMatches(content, refCode string) bool {
	if refCode == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(content), strings.ToUpper(refCode))
}

// AmountMatches compares a provider-reported amount with the expected one.
func AmountMatches(received float64, expected int64) bool {
	return math.Abs(received-float64(expected)) <= amountTolerance
}

func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
