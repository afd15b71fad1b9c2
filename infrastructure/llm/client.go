// Package llm gives LLM-backed jurors a single completion client over the
// OpenAI, Anthropic and Google providers.
//
// Each provider implements CoreLLM. Cross-cutting behavior such as retries,
// rate limiting, timeouts, metrics and tracing is layered on top as
// Middleware, so a juror never sees which provider it is talking to.
//
// Basic usage:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("JURY_ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-haiku-latest",
//	    Middleware: []llm.Middleware{
//	        llm.TracingMiddleware("anthropic"),
//	        llm.RetryMiddleware(2, time.Second, 10*time.Second),
//	        llm.RateLimitMiddleware(5, 10),
//	    },
//	})
//	text, err := client.Complete(ctx, prompt, nil)
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-jury/internal/ports"
)

// CoreLLM is the minimal surface a provider implements. Middleware wraps
// a CoreLLM and returns another one.
type CoreLLM interface {
	// DoRequest sends prompt to the provider and returns the response text
	// with the input and output token counts.
	DoRequest(
		ctx context.Context,
		prompt string,
		opts map[string]any,
	) (
		response string,
		tokensIn, tokensOut int,
		err error,
	)

	// GetModel returns the configured model name.
	GetModel() string

	// SetModel changes the model used by subsequent requests.
	SetModel(model string)
}

// ClientConfig holds the settings used to build a Client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the provider's model identifier.
	Model string

	// BaseURL overrides the provider endpoint. Empty means the default.
	BaseURL string

	// Timeout bounds the underlying HTTP client. Zero means no timeout.
	Timeout time.Duration

	// Middleware is applied in order; the first entry is the outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM to add behavior around each request.
type Middleware func(CoreLLM) CoreLLM

// Client implements ports.LLMClient on top of a middleware-wrapped provider.
type Client struct {
	core     CoreLLM
	provider string
	counter  TokenCounter
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds a client for providerType ("openai", "anthropic" or
// "google") and wraps it with config.Middleware.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := lookupProviderFactory(providerType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Reverse order so the first middleware ends up outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core, provider: providerType, counter: defaultTokenCounter}, nil
}

// Complete sends prompt and returns the response text. Provider failures
// are returned as *ports.LLMError wrapping the classified cause.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage is Complete plus the input and output token counts.
func (c *Client) CompleteWithUsage(
	ctx context.Context,
	prompt string,
	options map[string]any,
) (string, int, int, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, options)
	if err != nil {
		llmErr := ports.NewLLMError(c.provider, c.core.GetModel(), "Complete", err)
		llmErr.TokensUsed = tokensIn
		return "", tokensIn, tokensOut, llmErr
	}
	return response, tokensIn, tokensOut, nil
}

// EstimateTokens returns an approximate token count for text.
func (c *Client) EstimateTokens(text string) (int, error) { return c.counter.EstimateTokens(text), nil }

// GetModel returns the model of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Provider returns the provider type the client was built for.
func (c *Client) Provider() string { return c.provider }

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = map[string]ProviderFactory{}
)

// RegisterProviderFactory registers factory under providerType, replacing
// any previous registration.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[providerType] = factory
}

func lookupProviderFactory(providerType string) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := providerFactories[providerType]
	return f, ok
}

// SplitModelSpec splits a "provider/model" spec. The model part may itself
// contain slashes.
func SplitModelSpec(spec string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(spec, "/")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid model spec %q: want provider/model", spec)
	}
	return provider, model, nil
}
