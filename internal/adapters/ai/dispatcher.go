package ai

import (
	"context"
	"sync"

	"foreman/pkg/errors"
)

// Dispatcher routes chat requests to the provider serving the requested
// model. Providers register once at bootstrap; model bindings come from the
// model catalog.
type Dispatcher struct {
	mu        sync.RWMutex
	providers map[ProviderName]ChatProvider
	byModel   map[string]ProviderName
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		providers: make(map[ProviderName]ChatProvider),
		byModel:   make(map[string]ProviderName),
	}
}

// Register adds a provider to the dispatcher.
func (d *Dispatcher) Register(provider ChatProvider) error {
	if provider == nil {
		return errors.New("provider is nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	name := provider.Name()
	if _, exists := d.providers[name]; exists {
		return errors.Newf("provider %s already registered", name)
	}

	d.providers[name] = provider
	return nil
}

// Bind maps a model id to a registered provider.
func (d *Dispatcher) Bind(model string, provider ProviderName) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.providers[provider]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "provider %s not registered for model %s", provider, model)
	}

	d.byModel[model] = provider
	return nil
}

// Provider returns the provider bound to a model.
func (d *Dispatcher) Provider(model string) (ChatProvider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	name, ok := d.byModel[model]
	if !ok {
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "no provider bound for model %s", model)
	}

	provider, ok := d.providers[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "provider %s missing for model %s", name, model)
	}

	return provider, nil
}

// Providers returns the number of registered providers.
func (d *Dispatcher) Providers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.providers)
}

// Chat dispatches the request to the provider serving req.Model.
func (d *Dispatcher) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	provider, err := d.Provider(req.Model)
	if err != nil {
		return nil, err
	}

	return provider.Chat(ctx, req)
}
