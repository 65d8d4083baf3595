package domain

import (
	"context"
	"errors"
	"time"

	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	"gorm.io/gorm"
)

var (
	ErrInvalidDefinition = errors.New("invalid milestone definition")
	ErrInvalidWindow     = errors.New("unknown milestone window")
)

// Scope decides whose balance a milestone watches.
type Scope string

const (
	ScopePlayer Scope = "player"
	ScopeServer Scope = "server"
)

// ServerSubject is the completion subject for server-scope milestones.
const ServerSubject = "server"

// Definition is one configured milestone: when the watched balance in the
// window reaches Amount, Commands run once per window period.
type Definition struct {
	ID       string
	Scope    Scope
	Window   ledgerdomain.Window
	Amount   int64
	Message  string
	Commands []string
}

// Completion marks a milestone as rewarded for a subject within one window
// period. The unique index over (milestone_id, subject, window_start) is the
// exactly-once gate; timed milestones re-arm when the window rolls over.
type Completion struct {
	ID          int64     `gorm:"primaryKey"`
	MilestoneID string    `gorm:"size:128;uniqueIndex:idx_milestone_subject_window"`
	Subject     string    `gorm:"size:64;uniqueIndex:idx_milestone_subject_window"`
	Window      string    `gorm:"size:16;column:window_kind"`
	WindowStart time.Time `gorm:"uniqueIndex:idx_milestone_subject_window"`
	CompletedAt time.Time
}

func (Completion) TableName() string {
	return "milestone_completions"
}

// Repository persists completion marks.
type Repository interface {
	// MarkCompleted inserts the completion if absent and reports whether a
	// row was written. A false return means another evaluation already
	// rewarded this milestone for the period.
	MarkCompleted(ctx context.Context, db *gorm.DB, c *Completion) (bool, error)
	ResetWindow(ctx context.Context, db *gorm.DB, window string) (int64, error)
}

// Service evaluates milestones against ledger-derived balances.
type Service interface {
	EvaluatePlayer(ctx context.Context, playerID string) error
	EvaluateServer(ctx context.Context) error
	ResetWindow(ctx context.Context, window ledgerdomain.Window) (int64, error)
	Definitions() []Definition
}
