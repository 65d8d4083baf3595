package reward

import (
	"sort"
	"sync"
)

// SessionRegistry tracks player sessions reported by the host server over
// the sessions API. It is the Presence source of truth.
type SessionRegistry struct {
	mu      sync.RWMutex
	players map[string]struct{}
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{players: make(map[string]struct{})}
}

func (r *SessionRegistry) Join(playerID string) {
	if playerID == "" {
		return
	}
	r.mu.Lock()
	r.players[playerID] = struct{}{}
	r.mu.Unlock()
}

func (r *SessionRegistry) Leave(playerID string) {
	r.mu.Lock()
	delete(r.players, playerID)
	r.mu.Unlock()
}

func (r *SessionRegistry) Online() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.players))
	for id := range r.players {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *SessionRegistry) IsOnline(playerID string) bool {
	r.mu.RLock()
	_, ok := r.players[playerID]
	r.mu.RUnlock()
	return ok
}
