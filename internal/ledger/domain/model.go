package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidEntry  = errors.New("invalid ledger entry")
	ErrInvalidWindow = errors.New("unknown aggregation window")
)

// Entry is one confirmed credit. PaymentID is unique, which is what makes a
// replayed confirmation a no-op instead of a double credit.
type Entry struct {
	ID        int64  `gorm:"primaryKey"`
	PaymentID string `gorm:"size:64;uniqueIndex"`
	PlayerID  string `gorm:"size:64;index"`
	Amount    int64
	CreatedAt time.Time `gorm:"index"`
}

func (Entry) TableName() string {
	return "payment_logs"
}

// Window selects the calendar span a sum covers.
type Window string

const (
	WindowAllTime Window = "alltime"
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowYearly  Window = "yearly"
)

func ParseWindow(raw string) (Window, error) {
	switch Window(raw) {
	case WindowAllTime, WindowDaily, WindowWeekly, WindowMonthly, WindowYearly:
		return Window(raw), nil
	default:
		return "", ErrInvalidWindow
	}
}

// WindowTotals carries a player's confirmed sums across every window, all
// computed in one query.
type WindowTotals struct {
	Total   int64
	Daily   int64
	Weekly  int64
	Monthly int64
	Yearly  int64
}

func (t WindowTotals) For(w Window) int64 {
	switch w {
	case WindowDaily:
		return t.Daily
	case WindowWeekly:
		return t.Weekly
	case WindowMonthly:
		return t.Monthly
	case WindowYearly:
		return t.Yearly
	default:
		return t.Total
	}
}

// LeaderboardRow is one entry of a ranked top-up listing.
type LeaderboardRow struct {
	PlayerID string
	Amount   int64
}

// Service owns the append-only credit log and its aggregations. All sums are
// derived from stored entries; nothing here trusts cached values.
type Service interface {
	Append(ctx context.Context, e Entry) (bool, error)
	PlayerTotals(ctx context.Context, playerID string) (WindowTotals, error)
	ServerTotals(ctx context.Context) (WindowTotals, error)
	Leaderboard(ctx context.Context, window Window, limit int) ([]LeaderboardRow, error)
}
