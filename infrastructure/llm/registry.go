package llm

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ahrav/go-jury/internal/ports"
)

// ProviderConfig holds per-provider settings for a Registry.
type ProviderConfig struct {
	// Type is the registered provider factory ("openai", "anthropic", "google").
	Type string

	// APIKey authenticates the provider. Providers without a key cannot
	// produce clients.
	APIKey string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// Middleware is appended after the registry defaults.
	Middleware []Middleware
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Providers maps a provider name, as used in "provider/model" specs, to
	// its settings.
	Providers map[string]ProviderConfig

	// Timeout is applied to every client's HTTP transport.
	Timeout time.Duration

	// Middleware builds the default middleware for a provider. It is called
	// once per client so per-client state (such as metric labels) can be
	// bound to the provider name. It may be nil.
	Middleware func(provider string) []Middleware
}

// Registry hands out one shared client per "provider/model" spec, so
// several LLM jurors on the same model share a client and its rate limit.
type Registry struct {
	config  RegistryConfig
	mu      sync.RWMutex
	clients map[string]ports.LLMClient
}

// NewRegistry creates a Registry. It fails when no provider has an API key.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	usable := 0
	for _, p := range config.Providers {
		if p.APIKey != "" {
			usable++
		}
	}
	if usable == 0 {
		return nil, fmt.Errorf("no LLM provider configured with an API key: %w", ports.ErrConfigNotFound)
	}

	return &Registry{config: config, clients: make(map[string]ports.LLMClient)}, nil
}

// Client returns the client for spec ("provider/model"), creating it on
// first use.
func (r *Registry) Client(spec string) (ports.LLMClient, error) {
	r.mu.RLock()
	client, ok := r.clients[spec]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[spec]; ok {
		return client, nil
	}

	client, err := r.createClient(spec)
	if err != nil {
		return nil, err
	}
	r.clients[spec] = client
	return client, nil
}

func (r *Registry) createClient(spec string) (ports.LLMClient, error) {
	provider, model, err := SplitModelSpec(spec)
	if err != nil {
		return nil, err
	}

	pc, ok := r.config.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if pc.APIKey == "" {
		return nil, ports.NewConfigError(provider+".api_key", ports.ErrConfigNotFound)
	}

	typ := pc.Type
	if typ == "" {
		typ = provider
	}

	var middleware []Middleware
	if r.config.Middleware != nil {
		middleware = append(middleware, r.config.Middleware(provider)...)
	}
	middleware = append(middleware, pc.Middleware...)

	return NewClient(typ, ClientConfig{
		APIKey:     pc.APIKey,
		Model:      model,
		BaseURL:    pc.BaseURL,
		Timeout:    r.config.Timeout,
		Middleware: middleware,
	})
}

// Providers returns the names of providers that have an API key, sorted.
func (r *Registry) Providers() []string {
	var names []string
	for name, p := range r.config.Providers {
		if p.APIKey != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
