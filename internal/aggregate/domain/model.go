package domain

import (
	"context"
	"time"

	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
)

// Summary is the cached display view of a player's confirmed sums. It feeds
// scoreboards and placeholders; reward decisions never read it.
type Summary struct {
	PlayerID    string
	Totals      ledgerdomain.WindowTotals
	RefreshedAt time.Time
}

// RankedRow is a leaderboard row with its dense rank. Players with equal
// amounts share a rank and the next distinct amount takes the following one.
type RankedRow struct {
	Rank     int
	PlayerID string
	Amount   int64
}

// Service is the read-side cache over the ledger.
type Service interface {
	Summary(ctx context.Context, playerID string) (Summary, error)
	RefreshPlayer(ctx context.Context, playerID string) error
	Leaderboard(ctx context.Context, window ledgerdomain.Window, limit int) ([]RankedRow, error)
	InvalidateLeaderboard()
}
