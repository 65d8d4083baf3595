package service_test

import (
	"context"
	"testing"
	"time"

	aggregatedomain "github.com/simpmc/simppay/internal/aggregate/domain"
	aggregateservice "github.com/simpmc/simppay/internal/aggregate/service"
	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLedger counts reads so the tests can tell a cache hit from a reload.
type fakeLedger struct {
	totals           map[string]ledgerdomain.WindowTotals
	rows             []ledgerdomain.LeaderboardRow
	totalsCalls      int
	leaderboardCalls int
}

func (f *fakeLedger) Append(ctx context.Context, e ledgerdomain.Entry) (bool, error) {
	return false, nil
}

func (f *fakeLedger) PlayerTotals(ctx context.Context, playerID string) (ledgerdomain.WindowTotals, error) {
	f.totalsCalls++
	return f.totals[playerID], nil
}

func (f *fakeLedger) ServerTotals(ctx context.Context) (ledgerdomain.WindowTotals, error) {
	return ledgerdomain.WindowTotals{}, nil
}

func (f *fakeLedger) Leaderboard(ctx context.Context, window ledgerdomain.Window, limit int) ([]ledgerdomain.LeaderboardRow, error) {
	f.leaderboardCalls++
	if limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func setup(t *testing.T) (aggregatedomain.Service, *fakeLedger, *clock.FakeClock) {
	t.Helper()

	ledger := &fakeLedger{
		totals: map[string]ledgerdomain.WindowTotals{
			"alice": {Total: 100000, Daily: 10000},
		},
	}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC))
	svc := aggregateservice.NewService(aggregateservice.Params{
		Log:       zap.NewNop(),
		Clock:     fakeClock,
		Config:    config.Config{CacheTTL: 5 * time.Minute, LeaderboardTTL: time.Minute},
		LedgerSvc: ledger,
	})
	return svc, ledger, fakeClock
}

func TestSummaryCachesUntilTTL(t *testing.T) {
	svc, ledger, fakeClock := setup(t)
	ctx := context.Background()

	first, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(100000), first.Totals.Total)
	require.Equal(t, 1, ledger.totalsCalls)

	// Within the TTL the ledger is not consulted again.
	_, err = svc.Summary(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, ledger.totalsCalls)

	fakeClock.Advance(6 * time.Minute)
	_, err = svc.Summary(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, ledger.totalsCalls)
}

func TestRefreshPlayerUpdatesCachedSummary(t *testing.T) {
	svc, ledger, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)

	ledger.totals["alice"] = ledgerdomain.WindowTotals{Total: 150000, Daily: 60000}
	require.NoError(t, svc.RefreshPlayer(ctx, "alice"))

	summary, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(150000), summary.Totals.Total)
	require.Equal(t, 2, ledger.totalsCalls)
}

func TestLeaderboardDenseRanksTies(t *testing.T) {
	svc, ledger, _ := setup(t)
	ledger.rows = []ledgerdomain.LeaderboardRow{
		{PlayerID: "alice", Amount: 50000},
		{PlayerID: "bob", Amount: 50000},
		{PlayerID: "carol", Amount: 30000},
	}

	rows, err := svc.Leaderboard(context.Background(), ledgerdomain.WindowAllTime, 10)
	require.NoError(t, err)
	require.Equal(t, []aggregatedomain.RankedRow{
		{Rank: 1, PlayerID: "alice", Amount: 50000},
		{Rank: 1, PlayerID: "bob", Amount: 50000},
		{Rank: 2, PlayerID: "carol", Amount: 30000},
	}, rows)
}

func TestLeaderboardCachePerWindowAndLimit(t *testing.T) {
	svc, ledger, _ := setup(t)
	ledger.rows = []ledgerdomain.LeaderboardRow{{PlayerID: "alice", Amount: 50000}}
	ctx := context.Background()

	_, err := svc.Leaderboard(ctx, ledgerdomain.WindowAllTime, 10)
	require.NoError(t, err)
	_, err = svc.Leaderboard(ctx, ledgerdomain.WindowAllTime, 10)
	require.NoError(t, err)
	require.Equal(t, 1, ledger.leaderboardCalls)

	// A different window key misses the cache.
	_, err = svc.Leaderboard(ctx, ledgerdomain.WindowDaily, 10)
	require.NoError(t, err)
	require.Equal(t, 2, ledger.leaderboardCalls)
}

func TestInvalidateLeaderboardForcesReload(t *testing.T) {
	svc, ledger, _ := setup(t)
	ledger.rows = []ledgerdomain.LeaderboardRow{{PlayerID: "alice", Amount: 50000}}
	ctx := context.Background()

	_, err := svc.Leaderboard(ctx, ledgerdomain.WindowAllTime, 10)
	require.NoError(t, err)

	svc.InvalidateLeaderboard()

	_, err = svc.Leaderboard(ctx, ledgerdomain.WindowAllTime, 10)
	require.NoError(t, err)
	require.Equal(t, 2, ledger.leaderboardCalls)
}
