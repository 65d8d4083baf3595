package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/simpmc/simppay/internal/clock"
	"github.com/simpmc/simppay/internal/config"
	"github.com/simpmc/simppay/internal/migration"
	streakdomain "github.com/simpmc/simppay/internal/streak/domain"
	streakservice "github.com/simpmc/simppay/internal/streak/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	tiers []int
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, playerID string, commands []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// The fixture encodes the tier length in the single command.
	var days int
	fmt.Sscanf(commands[0], "tier-%d", &days)
	d.tiers = append(d.tiers, days)
	return nil
}

func (d *recordingDispatcher) dispatched() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.tiers...)
}

func setup(t *testing.T, tiers []streakdomain.Tier) (streakdomain.Service, *recordingDispatcher, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC))
	dispatcher := &recordingDispatcher{}

	svc := streakservice.NewService(streakservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		Clock:      fakeClock,
		Config:     config.Config{Timezone: "UTC"},
		Dispatcher: dispatcher,
		Tiers:      tiers,
	})
	return svc, dispatcher, fakeClock
}

func tier(days int) streakdomain.Tier {
	return streakdomain.Tier{
		Days:     days,
		Message:  fmt.Sprintf("streak %d", days),
		Commands: []string{fmt.Sprintf("tier-%d", days)},
	}
}

func TestFirstPaymentStartsStreak(t *testing.T) {
	svc, _, _ := setup(t, nil)

	result, err := svc.Record(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, 1, result.Current)
	require.Equal(t, 1, result.Best)
	require.True(t, result.Advanced)
	require.False(t, result.Broken)
}

func TestSecondPaymentSameDayIsNoop(t *testing.T) {
	svc, _, fakeClock := setup(t, nil)
	ctx := context.Background()

	_, err := svc.Record(ctx, "alice")
	require.NoError(t, err)

	fakeClock.Advance(3 * time.Hour)
	result, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, result.Current)
	require.False(t, result.Advanced)
	require.False(t, result.Broken)
}

func TestNextDayExtendsStreak(t *testing.T) {
	svc, _, fakeClock := setup(t, nil)
	ctx := context.Background()

	_, err := svc.Record(ctx, "alice")
	require.NoError(t, err)

	fakeClock.Advance(24 * time.Hour)
	result, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, result.Current)
	require.Equal(t, 2, result.Best)
	require.True(t, result.Advanced)
}

func TestGapBreaksStreakButKeepsBest(t *testing.T) {
	svc, _, fakeClock := setup(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, "alice")
		require.NoError(t, err)
		fakeClock.Advance(24 * time.Hour)
	}

	// Skip two more days after the last payment.
	fakeClock.Advance(48 * time.Hour)
	result, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, result.Current)
	require.Equal(t, 3, result.Best)
	require.True(t, result.Broken)
	require.Equal(t, 3, result.PreviousBest)

	streak, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, streak.Current)
	require.Equal(t, 3, streak.Best)
}

func TestTiersPayOncePerRun(t *testing.T) {
	svc, dispatcher, fakeClock := setup(t, []streakdomain.Tier{tier(2), tier(3)})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, "alice")
		require.NoError(t, err)
		fakeClock.Advance(24 * time.Hour)
	}
	require.Equal(t, []int{2, 3}, dispatcher.dispatched())

	// A second payment on day three pays nothing extra.
	fakeClock.Advance(-24 * time.Hour)
	_, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, dispatcher.dispatched())
}

func TestTiersRearmAfterBreak(t *testing.T) {
	svc, dispatcher, fakeClock := setup(t, []streakdomain.Tier{tier(2)})
	ctx := context.Background()

	_, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	fakeClock.Advance(24 * time.Hour)
	_, err = svc.Record(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []int{2}, dispatcher.dispatched())

	// Break the run, then climb back to two days.
	fakeClock.Advance(72 * time.Hour)
	_, err = svc.Record(ctx, "alice")
	require.NoError(t, err)
	fakeClock.Advance(24 * time.Hour)
	_, err = svc.Record(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, dispatcher.dispatched())
}

func TestRetroactiveTiersPayInOnePass(t *testing.T) {
	// A player whose run already covers several tiers when the config gains
	// new ones gets each newly reached tier exactly once.
	svc, dispatcher, fakeClock := setup(t, []streakdomain.Tier{tier(1), tier(2), tier(3)})
	ctx := context.Background()

	_, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []int{1}, dispatcher.dispatched())

	fakeClock.Advance(24 * time.Hour)
	_, err = svc.Record(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, dispatcher.dispatched())
}

func TestGetUnknownPlayerReturnsZeroStreak(t *testing.T) {
	svc, _, _ := setup(t, nil)

	streak, err := svc.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.Equal(t, "nobody", streak.PlayerID)
	require.Equal(t, 0, streak.Current)
	require.Equal(t, 0, streak.Best)
}

func TestStreaksAreIndependentPerPlayer(t *testing.T) {
	svc, _, fakeClock := setup(t, nil)
	ctx := context.Background()

	_, err := svc.Record(ctx, "alice")
	require.NoError(t, err)

	fakeClock.Advance(24 * time.Hour)
	resultAlice, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	resultBob, err := svc.Record(ctx, "bob")
	require.NoError(t, err)

	require.Equal(t, 2, resultAlice.Current)
	require.Equal(t, 1, resultBob.Current)
}
