package application

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ahrav/go-jury/infrastructure/llm"
)

// EnvPrefix prefixes every runtime environment variable.
const EnvPrefix = "JURY_"

// RuntimeConfig holds process-level settings read from the environment.
// Game content lives in GameConfig; this covers logging, telemetry and
// provider credentials.
type RuntimeConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// MetricsAddr serves Prometheus metrics when non-empty, e.g. ":9090".
	MetricsAddr string `env:"METRICS_ADDR"`

	// OTLPEndpoint exports traces over OTLP/HTTP when non-empty.
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`

	OpenAIKey    string `env:"OPENAI_API_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	GoogleKey    string `env:"GOOGLE_API_KEY"`

	// LLMTimeout bounds one provider request, retries excluded.
	LLMTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`

	// LLMMaxRetries is the retry budget for transient provider errors.
	LLMMaxRetries int `env:"LLM_MAX_RETRIES" envDefault:"2"`

	// LLMRequestsPerSecond rate limits each provider, across its models.
	// Zero disables rate limiting.
	LLMRequestsPerSecond float64 `env:"LLM_RPS" envDefault:"5"`

	// LLMMaxTokens and LLMMaxCalls cap what one game may spend across all
	// LLM jurors. Zero means unlimited.
	LLMMaxTokens int64 `env:"LLM_MAX_TOKENS"`
	LLMMaxCalls  int64 `env:"LLM_MAX_CALLS"`
}

// LoadRuntimeConfig reads RuntimeConfig from environ, a map of variable
// names to values. A nil environ reads the process environment.
func LoadRuntimeConfig(environ map[string]string) (RuntimeConfig, error) {
	var cfg RuntimeConfig
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return RuntimeConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.LLMMaxRetries < 0 {
		return RuntimeConfig{}, fmt.Errorf("parse env: %sLLM_MAX_RETRIES must not be negative", EnvPrefix)
	}
	if cfg.LLMRequestsPerSecond < 0 {
		return RuntimeConfig{}, fmt.Errorf("parse env: %sLLM_RPS must not be negative", EnvPrefix)
	}
	if cfg.LLMMaxTokens < 0 || cfg.LLMMaxCalls < 0 {
		return RuntimeConfig{}, fmt.Errorf("parse env: %sLLM_MAX_TOKENS and %sLLM_MAX_CALLS must not be negative", EnvPrefix, EnvPrefix)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values select Info.
func (c RuntimeConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Providers returns the provider configuration for llm.NewRegistry, keyed
// by provider name. Providers without a key are left out.
func (c RuntimeConfig) Providers() map[string]llm.ProviderConfig {
	providers := make(map[string]llm.ProviderConfig)
	for name, key := range map[string]string{
		"openai":    c.OpenAIKey,
		"anthropic": c.AnthropicKey,
		"google":    c.GoogleKey,
	} {
		if key != "" {
			providers[name] = llm.ProviderConfig{APIKey: key}
		}
	}
	return providers
}
