package adapters

import (
	"github.com/simpmc/simppay/internal/payment/domain"
)

// Registry resolves the adapter for a payment kind.
type Registry struct {
	byKind map[domain.Kind]domain.Adapter
}

func NewRegistry(list ...domain.Adapter) *Registry {
	byKind := make(map[domain.Kind]domain.Adapter, len(list))
	for _, a := range list {
		byKind[a.Kind()] = a
	}
	return &Registry{byKind: byKind}
}

func (r *Registry) ForKind(kind domain.Kind) (domain.Adapter, error) {
	a, ok := r.byKind[kind]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return a, nil
}
