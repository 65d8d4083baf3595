package events

import "time"

// Type tags the closed set of domain events the engine can emit.
type Type string

const (
	TypePaymentSucceeded       Type = "payment_succeeded"
	TypePaymentFailed          Type = "payment_failed"
	TypePlayerMilestoneReached Type = "player_milestone_reached"
	TypeServerMilestoneReached Type = "server_milestone_reached"
	TypeStreakAdvanced         Type = "streak_advanced"
	TypeStreakBroken           Type = "streak_broken"
)

// Event carries the fields shared by all domain events; unused fields stay
// zero for types that do not need them.
type Event struct {
	Type      Type
	PaymentID string
	PlayerID  string
	Kind      string
	Status    string
	Amount    int64
	Window    string
	Threshold int64
	Days      int
	Message   string
	At        time.Time
}
