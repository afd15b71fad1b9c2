package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-jury/infrastructure/llm"
	"github.com/ahrav/go-jury/infrastructure/middleware"
	"github.com/ahrav/go-jury/internal/application"
	"github.com/ahrav/go-jury/internal/ports"
)

// stubProvider answers every request with err, or with "7" when err is nil,
// and counts requests per model.
type stubProvider struct {
	mu    sync.Mutex
	err   error
	calls map[string]int
}

func (p *stubProvider) core(model string) llm.CoreLLM { return &stubCore{provider: p, model: model} }

func (p *stubProvider) count(model string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[model]
}

type stubCore struct {
	provider *stubProvider
	model    string
}

func (c *stubCore) DoRequest(context.Context, string, map[string]any) (string, int, int, error) {
	c.provider.mu.Lock()
	defer c.provider.mu.Unlock()
	c.provider.calls[c.model]++
	if c.provider.err != nil {
		return "", 0, 0, c.provider.err
	}
	return "7", 10, 1, nil
}

func (c *stubCore) GetModel() string  { return c.model }
func (c *stubCore) SetModel(m string) { c.model = m }

// newStubRegistry registers provider under a type unique to the test and
// returns an llm registry whose middleware comes from providerMiddleware.
func newStubRegistry(t *testing.T, provider *stubProvider, rc application.RuntimeConfig) *llm.Registry {
	t.Helper()
	typ := "stub-" + t.Name()
	llm.RegisterProviderFactory(typ, func(config llm.ClientConfig) (llm.CoreLLM, error) {
		return provider.core(config.Model), nil
	})

	budget, err := middleware.NewBudgetManager(middleware.Budget{}, nil)
	require.NoError(t, err)
	registry, err := llm.NewRegistry(llm.RegistryConfig{
		Providers:  map[string]llm.ProviderConfig{"openai": {Type: typ, APIKey: "k"}},
		Timeout:    rc.LLMTimeout,
		Middleware: providerMiddleware(rc, nil, budget),
	})
	require.NoError(t, err)
	return registry
}

func TestProviderMiddleware_SharedCircuitBreaker(t *testing.T) {
	provider := &stubProvider{err: ports.ErrServiceUnavailable, calls: map[string]int{}}
	registry := newStubRegistry(t, provider, application.RuntimeConfig{LLMTimeout: 5 * time.Second})

	modelA, err := registry.Client("openai/model-a")
	require.NoError(t, err)
	modelB, err := registry.Client("openai/model-b")
	require.NoError(t, err)

	for range circuitMaxFailures {
		_, err := modelA.Complete(context.Background(), "vote", nil)
		require.ErrorIs(t, err, ports.ErrServiceUnavailable)
	}

	_, err = modelB.Complete(context.Background(), "vote", nil)
	assert.ErrorIs(t, err, llm.ErrCircuitOpen, "model-b sits behind the breaker model-a opened")
	assert.Equal(t, circuitMaxFailures, provider.count("model-a"))
	assert.Zero(t, provider.count("model-b"))
}

func TestProviderMiddleware_SharedRateLimit(t *testing.T) {
	provider := &stubProvider{calls: map[string]int{}}
	registry := newStubRegistry(t, provider, application.RuntimeConfig{
		LLMTimeout:           5 * time.Second,
		LLMRequestsPerSecond: 0.01,
	})

	modelA, err := registry.Client("openai/model-a")
	require.NoError(t, err)
	modelB, err := registry.Client("openai/model-b")
	require.NoError(t, err)

	_, err = modelA.Complete(context.Background(), "vote", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = modelB.Complete(ctx, "vote", nil)
	assert.Error(t, err, "model-b waits for the token model-a spent")
	assert.Zero(t, provider.count("model-b"))
}
