package cost

import (
	"fmt"
	"sync"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
)

// AdapterFactory creates the adapter for one provider.
type AdapterFactory func() (Adapter, error)

// Registry manages provider adapter factories
type Registry interface {
	// Register adds a new provider adapter factory
	Register(provider domain.ProviderID, factory AdapterFactory) error
	// Create instantiates the adapter registered for provider
	Create(provider domain.ProviderID) (Adapter, error)
	// Adapters instantiates every registered adapter, keyed by provider
	Adapters() (map[domain.ProviderID]Adapter, error)
	ListProviders() []domain.ProviderID
}

type registry struct {
	mu        sync.RWMutex
	factories map[domain.ProviderID]AdapterFactory
}

func NewRegistry(factories map[domain.ProviderID]AdapterFactory) Registry {
	r := &registry{
		factories: make(map[domain.ProviderID]AdapterFactory, len(factories)),
	}
	for provider, factory := range factories {
		r.factories[provider] = factory
	}
	return r
}

func (r *registry) Register(provider domain.ProviderID, factory AdapterFactory) error {
	if provider == "" {
		return fmt.Errorf("provider id cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[provider]; exists {
		return fmt.Errorf("provider %q is already registered", provider)
	}

	r.factories[provider] = factory
	return nil
}

func (r *registry) Create(provider domain.ProviderID) (Adapter, error) {
	r.mu.RLock()
	factory, exists := r.factories[provider]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("provider %q is not registered", provider)
	}

	adapter, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter: %w", provider, err)
	}
	if adapter.Provider() != provider {
		return nil, fmt.Errorf("factory for %q returned adapter for %q", provider, adapter.Provider())
	}
	return adapter, nil
}

func (r *registry) Adapters() (map[domain.ProviderID]Adapter, error) {
	adapters := make(map[domain.ProviderID]Adapter)
	for _, provider := range r.ListProviders() {
		adapter, err := r.Create(provider)
		if err != nil {
			return nil, err
		}
		adapters[provider] = adapter
	}
	return adapters, nil
}

func (r *registry) ListProviders() []domain.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]domain.ProviderID, 0, len(r.factories))
	for _, p := range domain.Providers {
		if _, ok := r.factories[p]; ok {
			providers = append(providers, p)
		}
	}
	for p := range r.factories {
		if !isKnown(p) {
			providers = append(providers, p)
		}
	}
	return providers
}

func isKnown(p domain.ProviderID) bool {
	for _, known := range domain.Providers {
		if known == p {
			return true
		}
	}
	return false
}
