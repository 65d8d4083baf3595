package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/events"
	ledgerservice "github.com/simpmc/simppay/internal/ledger/service"
	"github.com/simpmc/simppay/internal/migration"
	"github.com/simpmc/simppay/internal/payment/adapters"
	paymentdomain "github.com/simpmc/simppay/internal/payment/domain"
	"github.com/simpmc/simppay/internal/payment/poller"
	"github.com/simpmc/simppay/internal/payment/registry"
	paymentrepo "github.com/simpmc/simppay/internal/payment/repository"
	paymentservice "github.com/simpmc/simppay/internal/payment/service"
	"github.com/simpmc/simppay/internal/ratelimit"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeAdapter struct {
	kind        paymentdomain.Kind
	submitRes   paymentdomain.SubmitResult
	submitErr   error
	submitDelay time.Duration
	pollRes     paymentdomain.PollResult

	mu      sync.Mutex
	submits int
}

func (a *fakeAdapter) Provider() string          { return "fake-" + string(a.kind) }
func (a *fakeAdapter) Kind() paymentdomain.Kind  { return a.kind }
func (a *fakeAdapter) Cancel(context.Context, *paymentdomain.Payment) error { return nil }

func (a *fakeAdapter) Submit(ctx context.Context, p *paymentdomain.Payment) (paymentdomain.SubmitResult, error) {
	a.mu.Lock()
	a.submits++
	a.mu.Unlock()
	if a.submitDelay > 0 {
		time.Sleep(a.submitDelay)
	}
	if a.kind == paymentdomain.KindBanking && p.Bank != nil {
		p.Bank.ReferenceCode = "SPTESTREF000"
		p.Bank.QRString = "qr://" + p.Bank.ReferenceCode
	}
	return a.submitRes, a.submitErr
}

func (a *fakeAdapter) submitCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submits
}

func (a *fakeAdapter) Poll(ctx context.Context, p *paymentdomain.Payment) (paymentdomain.PollResult, error) {
	return a.pollRes, nil
}

type fixture struct {
	svc    paymentdomain.Service
	db     *gorm.DB
	active *registry.Active
	clock  *clock.FakeClock
	bus    *events.Bus
	card   *fakeAdapter
	bank   *fakeAdapter
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{Timezone: "UTC"}

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fakeClock,
		Config: cfg,
	})

	card := &fakeAdapter{
		kind:      paymentdomain.KindCard,
		submitRes: paymentdomain.SubmitResult{Status: paymentdomain.StatusPending},
	}
	bank := &fakeAdapter{
		kind:      paymentdomain.KindBanking,
		submitRes: paymentdomain.SubmitResult{Status: paymentdomain.StatusPending},
	}

	active := registry.NewActive()
	watch := poller.New(poller.Params{
		Log:    zap.NewNop(),
		Clock:  fakeClock,
		Active: active,
		Config: poller.Config{Interval: time.Hour, Timeout: time.Hour},
	})
	t.Cleanup(func() {
		_ = watch.Shutdown(context.Background())
	})

	bus := events.NewBus(zap.NewNop())

	svc := paymentservice.NewService(paymentservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     fakeClock,
		Config:    cfg,
		Active:    active,
		Adapters:  adapters.NewRegistry(card, bank),
		Repo:      paymentrepo.Provide(),
		Poller:    watch,
		Sequencer: ratelimit.NewSequencer(nil, zap.NewNop()),
		LedgerSvc: ledgerSvc,
		Bus:       bus,
	})

	return &fixture{svc: svc, db: db, active: active, clock: fakeClock, bus: bus, card: card, bank: bank}
}

func cardInput() paymentdomain.CreateCardInput {
	return paymentdomain.CreateCardInput{
		PlayerID: "alice",
		Telco:    "VIETTEL",
		Serial:   "10002223334445",
		Pin:      "111122223333",
		Price:    50000,
	}
}

func countLedgerEntries(t *testing.T, db *gorm.DB, paymentID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(*) FROM payment_logs WHERE payment_id = ?`, paymentID,
	).Scan(&count).Error)
	return count
}

func TestCreateCardGoesPending(t *testing.T) {
	f := setup(t)

	p, err := f.svc.CreateCard(context.Background(), cardInput())
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusPending, p.Status)
	require.Equal(t, paymentdomain.NewCardPaymentID("10002223334445"), p.ID)
	require.True(t, f.active.Contains(p.ID))
}

func TestCreateCardRejectsInvalidInput(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := cardInput()
	in.Telco = "NOPE"
	_, err := f.svc.CreateCard(ctx, in)
	require.ErrorIs(t, err, paymentdomain.ErrInvalidTelco)

	in = cardInput()
	in.Price = 45000
	_, err = f.svc.CreateCard(ctx, in)
	require.ErrorIs(t, err, paymentdomain.ErrInvalidDenomination)

	in = cardInput()
	in.PlayerID = "  "
	_, err = f.svc.CreateCard(ctx, in)
	require.ErrorIs(t, err, paymentdomain.ErrInvalidPlayer)
}

func TestDuplicateCardSubmissionConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)

	_, err = f.svc.CreateCard(ctx, cardInput())
	require.ErrorIs(t, err, paymentdomain.ErrDuplicateSubmission)
}

func TestFinalizeSuccessWritesOneLedgerEntryAndOneEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var succeeded []events.Event
	var mu sync.Mutex
	f.bus.Subscribe(events.TypePaymentSucceeded, func(ctx context.Context, e events.Event) {
		mu.Lock()
		succeeded = append(succeeded, e)
		mu.Unlock()
	})

	p, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Finalize(ctx, p.ID, paymentdomain.StatusSuccess, 50000, "ok"))

	require.False(t, f.active.Contains(p.ID))
	require.Equal(t, int64(1), countLedgerEntries(t, f.db, p.ID))
	require.Len(t, succeeded, 1)
	require.Equal(t, int64(50000), succeeded[0].Amount)

	rec, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusSuccess, rec.Status)
	require.Equal(t, int64(50000), rec.ConfirmedAmount)
}

func TestConcurrentFinalizeSingleCredit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)

	// Poller and webhook racing to finalize the same payment.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.Finalize(ctx, p.ID, paymentdomain.StatusSuccess, 50000, "ok")
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), countLedgerEntries(t, f.db, p.ID))

	var records int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM payments WHERE id = ?`, p.ID).Scan(&records).Error)
	require.Equal(t, int64(1), records)
}

func TestWrongAmountCreditsConfirmedNotDeclared(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Finalize(ctx, p.ID, paymentdomain.StatusSuccessWrongAmount, 30000, "wrong value"))

	var amount int64
	require.NoError(t, f.db.Raw(
		`SELECT amount FROM payment_logs WHERE payment_id = ?`, p.ID,
	).Scan(&amount).Error)
	require.Equal(t, int64(30000), amount)

	rec, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50000), rec.Amount)
	require.Equal(t, int64(30000), rec.ConfirmedAmount)
}

func TestFailedFinalizeWritesNoLedgerEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var failed int
	f.bus.Subscribe(events.TypePaymentFailed, func(ctx context.Context, e events.Event) {
		failed++
	})

	p, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Finalize(ctx, p.ID, paymentdomain.StatusInvalid, 0, "bad card"))

	require.Equal(t, int64(0), countLedgerEntries(t, f.db, p.ID))
	require.Equal(t, 1, failed)
}

func TestResubmitAfterSuccessReportsExists(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)
	require.NoError(t, f.svc.Finalize(ctx, p.ID, paymentdomain.StatusSuccess, 50000, "ok"))

	again, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusExists, again.Status)
	require.False(t, f.active.Contains(p.ID))
	require.Equal(t, int64(1), countLedgerEntries(t, f.db, p.ID))
}

func TestResubmitAfterFailureChargesAgain(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)
	require.NoError(t, f.svc.Finalize(ctx, p.ID, paymentdomain.StatusFailed, 0, "wrong pin"))

	// A failed charge does not burn the serial; the corrected card goes
	// back to the provider instead of bouncing off EXISTS.
	in := cardInput()
	in.Pin = "999988887777"
	again, err := f.svc.CreateCard(ctx, in)
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusPending, again.Status)
	require.Equal(t, p.ID, again.ID)
	require.True(t, f.active.Contains(again.ID))
	require.Equal(t, 2, f.card.submitCount())
}

func TestCreateBankReusesPendingIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.CreateBank(ctx, paymentdomain.CreateBankInput{PlayerID: "alice", Amount: 100000})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusPending, first.Status)
	require.Equal(t, "SPTESTREF000", first.Bank.ReferenceCode)

	second, err := f.svc.CreateBank(ctx, paymentdomain.CreateBankInput{PlayerID: "alice", Amount: 200000})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestConcurrentCreateBankSingleIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.bank.submitDelay = 50 * time.Millisecond

	results := make([]*paymentdomain.Payment, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.svc.CreateBank(ctx, paymentdomain.CreateBankInput{PlayerID: "bob", Amount: 100000})
			require.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	require.Equal(t, results[0].ID, results[1].ID)
	require.Equal(t, 1, f.active.Len())
	require.Equal(t, 1, f.bank.submitCount())
}

func TestCancelBank(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.CreateBank(ctx, paymentdomain.CreateBankInput{PlayerID: "alice", Amount: 100000})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelBank(ctx, "alice"))
	require.False(t, f.active.Contains(p.ID))

	rec, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, paymentdomain.StatusCancelled, rec.Status)
	require.Equal(t, int64(0), countLedgerEntries(t, f.db, p.ID))

	require.ErrorIs(t, f.svc.CancelBank(ctx, "alice"), paymentdomain.ErrPaymentNotFound)
}

func TestGetUnknownPayment(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, paymentdomain.ErrPaymentNotFound)
}

func TestHistoryReturnsFinalizedPayments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.CreateCard(ctx, cardInput())
	require.NoError(t, err)
	require.NoError(t, f.svc.Finalize(ctx, p.ID, paymentdomain.StatusSuccess, 50000, "ok"))

	records, err := f.svc.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, p.ID, records[0].ID)
	require.Equal(t, string(paymentdomain.StatusSuccess), records[0].Status)
}
