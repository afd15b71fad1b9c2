package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-jury/internal/ports"
)

// pacer is a token bucket whose rate backs off while the provider answers
// with rate-limit errors. The rate halves on each such answer, down to an
// eighth of the base rate, and climbs back by an eighth per success.
type pacer struct {
	limiter *rate.Limiter
	base    rate.Limit
	floor   rate.Limit

	mu sync.Mutex
}

// newPacer creates a pacer running at limit with the given burst.
func newPacer(limit rate.Limit, burst int) *pacer {
	return &pacer{
		limiter: rate.NewLimiter(limit, burst),
		base:    limit,
		floor:   limit / 8,
	}
}

// slowDown halves the rate, never below the floor.
func (p *pacer) slowDown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.SetLimit(max(p.limiter.Limit()/2, p.floor))
}

// speedUp moves the rate one step back towards the base rate.
func (p *pacer) speedUp() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l := p.limiter.Limit(); l < p.base {
		p.limiter.SetLimit(min(l+p.floor, p.base))
	}
}

// rateLimitedLLM waits for the shared pacer before each request.
type rateLimitedLLM struct {
	next  CoreLLM
	pacer *pacer
}

// RateLimitMiddleware paces requests at limit requests per second with the
// given burst. Every client wrapped by the returned middleware draws from
// one bucket, so all jurors on a provider account are paced together, and
// a rate-limit answer to any of them slows all of them down.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	p := newPacer(limit, burst)
	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{next: next, pacer: p}
	}
}

// DoRequest blocks until the bucket grants a token or ctx is done, then
// adjusts the pace to the provider's answer.
func (r *rateLimitedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.pacer.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}

	response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, opts)
	switch {
	case err == nil:
		r.pacer.speedUp()
	case errors.Is(err, ports.ErrRateLimited):
		r.pacer.slowDown()
	}
	return response, tokensIn, tokensOut, err
}

// GetModel returns the model of the wrapped request.
func (r *rateLimitedLLM) GetModel() string { return r.next.GetModel() }

// SetModel sets the model of the wrapped request.
func (r *rateLimitedLLM) SetModel(m string) { r.next.SetModel(m) }
