package llm

import (
	"cmp"
	"fmt"
	"net/url"
	"sync"
)

// DefaultMaxTokens caps completions when the caller does not set
// "max_tokens". A juror answer is a short JSON object.
const DefaultMaxTokens = 512

// Valid ranges for sampling parameters accepted in request options.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
)

// RequestOptions is the normalized form of the options map passed to
// DoRequest.
type RequestOptions struct {
	MaxTokens int
	Model     string

	// Temperature and TopP are nil when the provider default applies.
	Temperature *float64
	TopP        *float64

	// System is an optional system prompt.
	System string
}

// ParseRequestOptions reads the recognized keys of opts. Missing or invalid
// values fall back to the defaults; unknown keys are ignored.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: optional(opts, "max_tokens", DefaultMaxTokens, func(v int) bool { return v > 0 }),
		Model:     optional(opts, "model", defaultModel, func(v string) bool { return v != "" }),
		System:    optional(opts, "system", "", nil),
	}

	if temp, ok := lookup[float64](opts, "temperature"); ok && temp >= MinTemperature && temp <= MaxTemperature {
		options.Temperature = &temp
	}
	if topP, ok := lookup[float64](opts, "top_p"); ok && topP >= MinTopP && topP <= MaxTopP {
		options.TopP = &topP
	}
	return options
}

func lookup[T any](opts map[string]any, key string) (T, bool) {
	v, ok := opts[key].(T)
	return v, ok
}

// optional returns opts[key] when it has type T and passes valid, otherwise
// def. A nil valid accepts any value of type T.
func optional[T any](opts map[string]any, key string, def T, valid func(T) bool) T {
	v, ok := lookup[T](opts, key)
	if !ok || (valid != nil && !valid(v)) {
		return def
	}
	return v
}

func clamp[T cmp.Ordered](v, lo, hi T) T { return min(max(v, lo), hi) }

// ValidateBaseURL checks that baseURL is an absolute http(s) URL. An empty
// string is valid and selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return u.String(), nil
}

// BaseProvider holds the model name shared by provider implementations.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the configured model.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel replaces the configured model.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// TokenCounter estimates token counts from character length.
type TokenCounter struct {
	CharactersPerToken float64
}

var defaultTokenCounter = TokenCounter{CharactersPerToken: 4}

// EstimateTokens returns the estimated token count for text, rounding up.
func (tc TokenCounter) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	per := tc.CharactersPerToken
	if per <= 0 {
		per = defaultTokenCounter.CharactersPerToken
	}
	n := int(float64(len(text))/per + 0.999)
	return max(n, 1)
}

// count prefers a positive count reported by the provider over an estimate.
func (tc TokenCounter) count(reported int64, text string) int {
	if reported > 0 {
		return int(reported)
	}
	return tc.EstimateTokens(text)
}
