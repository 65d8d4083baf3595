package domain

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidTier = errors.New("invalid streak tier")

// Streak tracks consecutive top-up days for one player. LastDay is the local
// calendar day of the last counted payment, stored as UTC midnight.
type Streak struct {
	PlayerID       string `gorm:"primaryKey;size:64"`
	Current        int
	Best           int
	LastDay        time.Time
	LastRewardTier int
	UpdatedAt      time.Time
}

func (Streak) TableName() string {
	return "player_streaks"
}

// Tier is a streak length that pays a reward once per run.
type Tier struct {
	Days     int
	Message  string
	Commands []string
}

// Result describes what one confirmed payment did to the streak.
type Result struct {
	Current      int
	Best         int
	Advanced     bool
	Broken       bool
	PreviousBest int
}

// Service applies the day rules: a second payment on the same day is a
// no-op, the next day extends the run, and a gap of two or more days starts
// a new run of one.
type Service interface {
	Record(ctx context.Context, playerID string) (Result, error)
	Get(ctx context.Context, playerID string) (Streak, error)
}
