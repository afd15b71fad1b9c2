package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ahrav/go-jury/internal/ports"
)

// retryLLM re-sends transient failures with exponential backoff.
type retryLLM struct {
	next       CoreLLM
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware retries retryable failures up to maxRetries times with
// exponential backoff and jitter, capped at maxDelay. Authentication, bad
// request and content policy failures are returned immediately.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{
			next:       next,
			maxRetries: max(maxRetries, 0),
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// DoRequest resends the request while it fails with a transient error and
// retries remain. The last error is wrapped.
func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) || attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}

	return "", 0, 0, fmt.Errorf("request failed after retries: %w", lastErr)
}

// delay returns baseDelay*2^attempt with ±25% jitter, capped at maxDelay.
func (r *retryLLM) delay(attempt int) time.Duration {
	d := r.baseDelay << min(attempt, 30)
	if d <= 0 || d > r.maxDelay {
		d = r.maxDelay
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return min(d-d/4+jitter, r.maxDelay)
}

// isRetryable reports whether err is transient. ProviderErrors decide for
// themselves; other errors are matched against the ports sentinels.
func isRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return errors.Is(err, ports.ErrRateLimited) ||
		errors.Is(err, ports.ErrServiceUnavailable) ||
		errors.Is(err, ports.ErrTimeout)
}

// GetModel returns the model of the wrapped request.
func (r *retryLLM) GetModel() string { return r.next.GetModel() }

// SetModel sets the model of the wrapped request.
func (r *retryLLM) SetModel(m string) { r.next.SetModel(m) }
