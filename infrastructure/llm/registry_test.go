package llm

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-jury/internal/ports"
)

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry(RegistryConfig{
		Providers: map[string]ProviderConfig{"openai": {Type: "openai"}},
	})
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)

	r, err := NewRegistry(RegistryConfig{
		Providers: map[string]ProviderConfig{
			"openai":    {APIKey: "k1"},
			"anthropic": {APIKey: "k2"},
			"google":    {},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "openai"}, r.Providers())
}

func TestRegistry_Client(t *testing.T) {
	mock := NewMockCoreLLM()
	withMockProvider("mock-registry", mock)

	var middlewareFor []string
	var mu sync.Mutex
	r, err := NewRegistry(RegistryConfig{
		Providers: map[string]ProviderConfig{
			"fake":   {Type: "mock-registry", APIKey: "k"},
			"nokey":  {Type: "mock-registry"},
			"broken": {Type: "missing-factory", APIKey: "k"},
		},
		Middleware: func(provider string) []Middleware {
			mu.Lock()
			defer mu.Unlock()
			middlewareFor = append(middlewareFor, provider)
			return nil
		},
	})
	require.NoError(t, err)

	t.Run("creates and caches clients", func(t *testing.T) {
		c1, err := r.Client("fake/judge-1")
		require.NoError(t, err)
		c2, err := r.Client("fake/judge-1")
		require.NoError(t, err)

		assert.Same(t, c1, c2)
		assert.Equal(t, []string{"fake"}, middlewareFor)

		text, err := c1.Complete(context.Background(), "p", nil)
		require.NoError(t, err)
		assert.Equal(t, mock.Response, text)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := r.Client("fake")
		assert.Error(t, err)

		_, err = r.Client("unknown/model")
		assert.ErrorIs(t, err, ErrUnknownProvider)

		_, err = r.Client("nokey/model")
		assert.ErrorIs(t, err, ports.ErrConfigNotFound)

		_, err = r.Client("broken/model")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("concurrent access", func(t *testing.T) {
		var wg sync.WaitGroup
		clients := make([]ports.LLMClient, 16)
		for i := range clients {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := r.Client("fake/judge-2")
				assert.NoError(t, err)
				clients[i] = c
			}()
		}
		wg.Wait()

		for _, c := range clients[1:] {
			assert.Same(t, clients[0], c)
		}
	})
}
