package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/go-jury/internal/ports"
)

// timeoutLLM bounds a single provider request.
type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

// TimeoutMiddleware bounds each request by timeout; zero or negative means
// no bound. Placed inside RetryMiddleware it bounds every attempt, and an
// attempt cut short is reported as ports.ErrTimeout so the retry treats it
// as transient. A deadline or cancellation from the caller is passed on
// unchanged.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutLLM{next: next, timeout: timeout}
	}
}

// DoRequest runs the wrapped request under the attempt deadline.
func (t *timeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if t.timeout <= 0 {
		return t.next.DoRequest(ctx, prompt, opts)
	}

	attemptCtx, cancel := context.WithTimeoutCause(ctx, t.timeout, ports.ErrTimeout)
	defer cancel()

	response, tokensIn, tokensOut, err := t.next.DoRequest(attemptCtx, prompt, opts)
	if err != nil && ctx.Err() == nil && !errors.Is(err, ports.ErrTimeout) &&
		errors.Is(context.Cause(attemptCtx), ports.ErrTimeout) {
		err = fmt.Errorf("%w after %s: %w", ports.ErrTimeout, t.timeout, err)
	}
	return response, tokensIn, tokensOut, err
}

// GetModel returns the model of the wrapped request.
func (t *timeoutLLM) GetModel() string { return t.next.GetModel() }

// SetModel sets the model of the wrapped request.
func (t *timeoutLLM) SetModel(m string) { t.next.SetModel(m) }
