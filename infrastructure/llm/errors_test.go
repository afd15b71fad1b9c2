package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-jury/internal/ports"
)

func TestProviderError_Error(t *testing.T) {
	wrapped := errors.New("sdk said no")
	err := NewProviderError("openai", ErrorTypeRateLimit, 429, "openai rate limit exceeded", wrapped)

	assert.Equal(t, "openai error (HTTP 429) [rate_limit]: openai rate limit exceeded: sdk said no", err.Error())
	assert.ErrorIs(t, err, wrapped)

	bare := NewProviderError("google", ErrorTypeUnknown, 0, "", nil)
	assert.Equal(t, "google error", bare.Error())
}

func TestProviderError_MapsToPortsSentinels(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		sentinel  error
		retryable bool
	}{
		{ErrorTypeRateLimit, ports.ErrRateLimited, true},
		{ErrorTypeServerError, ports.ErrServiceUnavailable, true},
		{ErrorTypeNetwork, ports.ErrServiceUnavailable, true},
		{ErrorTypeTimeout, ports.ErrTimeout, true},
		{ErrorTypeAuthentication, ports.ErrAuthenticationFailed, false},
		{ErrorTypeBadRequest, ports.ErrInvalidResponse, false},
		{ErrorTypeContentPolicy, ports.ErrInvalidResponse, false},
	}

	for _, tt := range tests {
		t.Run(tt.errType.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewProviderError("p", tt.errType, 0, "", nil))

			assert.ErrorIs(t, err, tt.sentinel)
			var pe *ProviderError
			assert.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.retryable, pe.IsRetryable())
		})
	}

	assert.NotErrorIs(t, NewProviderError("p", ErrorTypeUnknown, 0, "", nil), ports.ErrRateLimited)
}

func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	ec := ErrorClassifier{Provider: "anthropic"}

	tests := []struct {
		status  int
		want    ErrorType
		message string
	}{
		{401, ErrorTypeAuthentication, "anthropic authentication failed"},
		{403, ErrorTypeAuthentication, "anthropic authentication failed"},
		{429, ErrorTypeRateLimit, "anthropic rate limit exceeded"},
		{400, ErrorTypeBadRequest, "given"},
		{404, ErrorTypeNotFound, "given"},
		{422, ErrorTypeBadRequest, "given"},
		{504, ErrorTypeTimeout, "given"},
		{500, ErrorTypeServerError, "given"},
		{529, ErrorTypeServerError, "given"},
		{200, ErrorTypeUnknown, "given"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			pe := ec.ClassifyHTTPError(tt.status, "given", nil)
			assert.Equal(t, tt.want, pe.Type)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.message, pe.Message)
		})
	}
}

func TestErrorClassifier_ClassifyContextError(t *testing.T) {
	ec := ErrorClassifier{Provider: "openai"}

	deadline := ec.ClassifyContextError(context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeTimeout, deadline.Type)
	assert.True(t, deadline.IsRetryable())

	canceled := ec.ClassifyContextError(context.Canceled)
	assert.False(t, canceled.IsRetryable(), "a canceled request must not be retried")
	assert.ErrorIs(t, canceled, context.Canceled)
}
