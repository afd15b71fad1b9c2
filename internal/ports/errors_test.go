package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMError(t *testing.T) {
	tests := []struct {
		name          string
		err           *LLMError
		wantMsg       string
		wantRetryable bool
	}{
		{
			name:          "rate limited",
			err:           NewLLMError("openai", "gpt-4o-mini", "Complete", ErrRateLimited),
			wantMsg:       "llm openai/gpt-4o-mini Complete: rate limited",
			wantRetryable: true,
		},
		{
			name:          "provider down",
			err:           NewLLMError("google", "gemini-2.0-flash", "Complete", ErrServiceUnavailable),
			wantMsg:       "llm google/gemini-2.0-flash Complete: service unavailable",
			wantRetryable: true,
		},
		{
			name:          "timeout",
			err:           NewLLMError("anthropic", "claude", "Complete", ErrTimeout),
			wantMsg:       "llm anthropic/claude Complete: operation timed out",
			wantRetryable: true,
		},
		{
			name:    "bad key",
			err:     NewLLMError("openai", "gpt-4o", "Complete", ErrAuthenticationFailed),
			wantMsg: "llm openai/gpt-4o Complete: authentication failed",
		},
		{
			name:    "garbage answer",
			err:     NewLLMError("openai", "gpt-4o", "Complete", ErrInvalidResponse),
			wantMsg: "llm openai/gpt-4o Complete: invalid response",
		},
		{
			name:    "budget spent",
			err:     &LLMError{Provider: "openai", Model: "gpt-4o", Operation: "Complete", TokensUsed: 812, Err: ErrBudgetExceeded},
			wantMsg: "llm openai/gpt-4o Complete: llm budget exceeded (812 tokens used)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.Equal(t, tt.wantRetryable, tt.err.IsRetryable())
			assert.ErrorIs(t, tt.err, tt.err.Err)
		})
	}
}

func TestJurorError(t *testing.T) {
	tests := []struct {
		name    string
		juror   string
		attempt int
		err     error
		wantMsg string
	}{
		{
			name:    "scripted juror ran out",
			juror:   "Léa",
			attempt: 1,
			err:     ErrNoVote,
			wantMsg: "juror Léa (attempt 1): juror has no vote",
		},
		{
			name:    "llm juror timed out on retry",
			juror:   "Critic",
			attempt: 3,
			err:     NewLLMError("anthropic", "claude", "Complete", ErrTimeout),
			wantMsg: "juror Critic (attempt 3): llm anthropic/claude Complete: operation timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewJurorError(tt.juror, tt.attempt, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("retryable cause is reachable", func(t *testing.T) {
		err := NewJurorError("Critic", 1, NewLLMError("openai", "gpt-4o", "Complete", ErrRateLimited))

		var llmErr *LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.True(t, llmErr.IsRetryable())
	})
}

func TestMetricsError(t *testing.T) {
	err := NewMetricsError("/metrics", "listen", errors.New("address already in use"))

	assert.Equal(t, "metrics listen /metrics: address already in use", err.Error())
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("jury.model", ErrConfigNotFound)

	assert.Equal(t, "config jury.model: configuration not found", err.Error())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestErrorUnwrapping(t *testing.T) {
	base := errors.New("underlying error")

	for _, err := range []interface {
		error
		Unwrap() error
	}{
		NewLLMError("p", "m", "op", base),
		NewJurorError("juror", 1, base),
		NewMetricsError("metric", "op", base),
		NewConfigError("key", base),
	} {
		assert.Equal(t, base, err.Unwrap(), "%T", err)
		assert.ErrorIs(t, err, base, "%T", err)
	}
}
