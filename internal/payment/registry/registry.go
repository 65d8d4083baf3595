package registry

import (
	"sync"

	"github.com/simpmc/simppay/internal/payment/domain"
)

// Active tracks in-flight payments and arbitrates the poller/webhook race.
// Claim is a compare-and-remove under one mutex, so for a given payment ID
// exactly one caller wins the right to finalize it.
type Active struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment
}

func NewActive() *Active {
	return &Active{payments: make(map[string]*domain.Payment)}
}

// Put registers an in-flight payment. A second Put for the same ID fails,
// which is how duplicate card submissions collapse.
func (a *Active) Put(p *domain.Payment) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.payments[p.ID]; ok {
		return domain.ErrDuplicateSubmission
	}
	a.payments[p.ID] = p
	return nil
}

// Get returns the in-flight payment, if any.
func (a *Active) Get(id string) (*domain.Payment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.payments[id]
	return p, ok
}

// Claim removes and returns the payment. The second claimant for the same
// ID gets false and must stand down.
func (a *Active) Claim(id string) (*domain.Payment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.payments[id]
	if !ok {
		return nil, false
	}
	delete(a.payments, id)
	return p, true
}

// Contains reports whether the payment is still in flight.
func (a *Active) Contains(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.payments[id]
	return ok
}

// Snapshot copies the current in-flight set. The webhook matcher walks this
// copy without holding the registry lock during matching.
func (a *Active) Snapshot() []*domain.Payment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*domain.Payment, 0, len(a.payments))
	for _, p := range a.payments {
		out = append(out, p)
	}
	return out
}

// Len returns the number of in-flight payments.
func (a *Active) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.payments)
}
