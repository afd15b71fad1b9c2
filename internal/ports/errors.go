package ports

import (
	"errors"
	"fmt"
)

// Provider failures. LLM adapters classify SDK errors onto these so the
// session and the middleware can react without importing a provider.
var (
	ErrRateLimited          = errors.New("rate limited")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrTimeout              = errors.New("operation timed out")
	ErrInvalidResponse      = errors.New("invalid response")
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrBudgetExceeded indicates that a game used up its LLM token or call
	// allowance.
	ErrBudgetExceeded = errors.New("llm budget exceeded")
)

// Juror failures.
var (
	// ErrNoVote indicates that a juror had no vote to give, for example a
	// scripted juror whose script ran out.
	ErrNoVote = errors.New("juror has no vote")

	// ErrUnparsableVote indicates that a juror answered with something that
	// could not be read as a whole number. The session asks again.
	ErrUnparsableVote = errors.New("unparsable vote")
)

// ErrConfigNotFound indicates that required configuration is missing.
var ErrConfigNotFound = errors.New("configuration not found")

// LLMError wraps a failed completion with the client it came from.
type LLMError struct {
	Provider  string
	Model     string
	Operation string

	// TokensUsed is the prompt size charged before the failure, if known.
	TokensUsed int

	Err error
}

func (e *LLMError) Error() string {
	msg := fmt.Sprintf("llm %s/%s %s: %v", e.Provider, e.Model, e.Operation, e.Err)
	if e.TokensUsed > 0 {
		msg += fmt.Sprintf(" (%d tokens used)", e.TokensUsed)
	}
	return msg
}

func (e *LLMError) Unwrap() error { return e.Err }

// IsRetryable reports whether the same request may succeed later.
func (e *LLMError) IsRetryable() bool {
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewLLMError creates an LLMError.
func NewLLMError(provider, model, operation string, err error) *LLMError {
	return &LLMError{Provider: provider, Model: model, Operation: operation, Err: err}
}

// JurorError records which juror failed to hand in a vote, and on which
// attempt of the ballot.
type JurorError struct {
	Juror   string
	Attempt int // 1-based
	Err     error
}

func (e *JurorError) Error() string {
	return fmt.Sprintf("juror %s (attempt %d): %v", e.Juror, e.Attempt, e.Err)
}

func (e *JurorError) Unwrap() error { return e.Err }

// NewJurorError creates a JurorError.
func NewJurorError(juror string, attempt int, err error) *JurorError {
	return &JurorError{Juror: juror, Attempt: attempt, Err: err}
}

// MetricsError reports a failure to publish metrics, such as the /metrics
// listener not starting.
type MetricsError struct {
	Metric    string
	Operation string
	Err       error
}

func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics %s %s: %v", e.Operation, e.Metric, e.Err)
}

func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a MetricsError.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{Metric: metric, Operation: operation, Err: err}
}

// ConfigError names the configuration key that is missing or wrong.
type ConfigError struct {
	ConfigKey string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.ConfigKey, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{ConfigKey: key, Err: err}
}
