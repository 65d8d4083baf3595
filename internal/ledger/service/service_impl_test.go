package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	ledgerservice "github.com/simpmc/simppay/internal/ledger/service"
	"github.com/simpmc/simppay/internal/migration"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Wednesday noon UTC. Monday of this week is 2026-03-09.
var testNow = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (ledgerdomain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(testNow)
	svc := ledgerservice.NewService(ledgerservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fakeClock,
		Config: config.Config{Timezone: "UTC"},
	})
	return svc, fakeClock
}

func entry(paymentID, playerID string, amount int64, at time.Time) ledgerdomain.Entry {
	return ledgerdomain.Entry{
		PaymentID: paymentID,
		PlayerID:  playerID,
		Amount:    amount,
		CreatedAt: at,
	}
}

func TestAppendIsIdempotentPerPayment(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	inserted, err := svc.Append(ctx, entry("pay-1", "alice", 50000, testNow))
	require.NoError(t, err)
	require.True(t, inserted)

	// A replayed confirmation lands on the unique payment_id index.
	inserted, err = svc.Append(ctx, entry("pay-1", "alice", 50000, testNow))
	require.NoError(t, err)
	require.False(t, inserted)

	totals, err := svc.PlayerTotals(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(50000), totals.Total)
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, entry("", "alice", 50000, testNow))
	require.ErrorIs(t, err, ledgerdomain.ErrInvalidEntry)

	_, err = svc.Append(ctx, entry("pay-1", "", 50000, testNow))
	require.ErrorIs(t, err, ledgerdomain.ErrInvalidEntry)

	_, err = svc.Append(ctx, entry("pay-1", "alice", 0, testNow))
	require.ErrorIs(t, err, ledgerdomain.ErrInvalidEntry)
}

func TestPlayerTotalsSplitByWindow(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	seed := []ledgerdomain.Entry{
		entry("pay-1", "alice", 10000, testNow),                        // today
		entry("pay-2", "alice", 20000, testNow.AddDate(0, 0, -2)),      // Monday, this week
		entry("pay-3", "alice", 40000, testNow.AddDate(0, 0, -8)),      // last week, this month
		entry("pay-4", "alice", 80000, testNow.AddDate(0, -2, 0)),      // January, this year
		entry("pay-5", "alice", 160000, testNow.AddDate(-1, 0, 0)),     // last year
		entry("pay-6", "bob", 999999, testNow),                         // someone else
	}
	for _, e := range seed {
		inserted, err := svc.Append(ctx, e)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	totals, err := svc.PlayerTotals(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(10000), totals.Daily)
	require.Equal(t, int64(30000), totals.Weekly)
	require.Equal(t, int64(70000), totals.Monthly)
	require.Equal(t, int64(150000), totals.Yearly)
	require.Equal(t, int64(310000), totals.Total)
}

func TestServerTotalsSumAllPlayers(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for i, e := range []ledgerdomain.Entry{
		entry("pay-1", "alice", 10000, testNow),
		entry("pay-2", "bob", 20000, testNow),
		entry("pay-3", "carol", 40000, testNow.AddDate(-1, 0, 0)),
	} {
		inserted, err := svc.Append(ctx, e)
		require.NoError(t, err, "entry %d", i)
		require.True(t, inserted)
	}

	totals, err := svc.ServerTotals(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(30000), totals.Daily)
	require.Equal(t, int64(70000), totals.Total)
}

func TestTotalsForUnknownPlayerAreZero(t *testing.T) {
	svc, _ := setup(t)

	totals, err := svc.PlayerTotals(context.Background(), "nobody")
	require.NoError(t, err)
	require.Equal(t, ledgerdomain.WindowTotals{}, totals)
}

func TestLeaderboardOrdersAndLimits(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for _, e := range []ledgerdomain.Entry{
		entry("pay-1", "alice", 10000, testNow),
		entry("pay-2", "alice", 20000, testNow),
		entry("pay-3", "bob", 50000, testNow),
		entry("pay-4", "carol", 5000, testNow),
	} {
		inserted, err := svc.Append(ctx, e)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	rows, err := svc.Leaderboard(ctx, ledgerdomain.WindowAllTime, 2)
	require.NoError(t, err)
	require.Equal(t, []ledgerdomain.LeaderboardRow{
		{PlayerID: "bob", Amount: 50000},
		{PlayerID: "alice", Amount: 30000},
	}, rows)
}

func TestLeaderboardWindowExcludesOldEntries(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for _, e := range []ledgerdomain.Entry{
		entry("pay-1", "alice", 10000, testNow),
		entry("pay-2", "bob", 500000, testNow.AddDate(0, 0, -3)), // before Monday
	} {
		inserted, err := svc.Append(ctx, e)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	rows, err := svc.Leaderboard(ctx, ledgerdomain.WindowWeekly, 10)
	require.NoError(t, err)
	require.Equal(t, []ledgerdomain.LeaderboardRow{
		{PlayerID: "alice", Amount: 10000},
	}, rows)
}

func TestWindowRollsOverWithClock(t *testing.T) {
	svc, fakeClock := setup(t)
	ctx := context.Background()

	inserted, err := svc.Append(ctx, entry("pay-1", "alice", 10000, testNow))
	require.NoError(t, err)
	require.True(t, inserted)

	totals, err := svc.PlayerTotals(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(10000), totals.Daily)

	fakeClock.Advance(24 * time.Hour)

	totals, err = svc.PlayerTotals(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(0), totals.Daily)
	require.Equal(t, int64(10000), totals.Total)
}
