package reward

import "context"

// Dispatcher hands reward commands to the host environment for execution.
// Dispatch failures never undo a completion mark; commands are delivered at
// most once per completion.
type Dispatcher interface {
	Dispatch(ctx context.Context, playerID string, commands []string) error
}

// Presence answers who is currently online. Server-scope milestones fan out
// their commands per online player.
type Presence interface {
	Online() []string
	IsOnline(playerID string) bool
}
