package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-jury/internal/ports"
)

// ErrCircuitOpen indicates that the circuit breaker refused a request
// without sending it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	// CircuitClosed lets every request through.
	CircuitClosed CircuitState = iota

	// CircuitOpen refuses requests until the cooldown has passed.
	CircuitOpen

	// CircuitHalfOpen lets a single trial call through; its outcome closes or
	// reopens the circuit.
	CircuitHalfOpen
)

// String returns the snake_case state name used in logs and metrics.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after maxFailures consecutive failures and stays open
// for cooldown before probing the provider again. Requests run without the
// lock held.
type CircuitBreaker struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker creates a closed CircuitBreaker. maxFailures below one
// is treated as one.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: max(maxFailures, 1),
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// allow admits a request or fails with ErrCircuitOpen.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.probing = true
	case CircuitHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

// record updates the state with the outcome of an admitted request.
// Cancellation by the caller says nothing about the provider and is ignored.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	switch {
	case err == nil:
		cb.failures = 0
		cb.state = CircuitClosed
	case errors.Is(err, context.Canceled):
	default:
		cb.failures++
		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.openedAt = cb.now()
		}
	}
}

// circuitBreakerLLM guards a provider with a CircuitBreaker.
type circuitBreakerLLM struct {
	next      CoreLLM
	cb        *CircuitBreaker
	provider  string
	collector ports.MetricsCollector
}

// CircuitBreakerMiddleware fails fast with ErrCircuitOpen while a provider
// keeps failing. Each call creates one breaker shared by every client the
// returned middleware wraps. collector may be nil.
func CircuitBreakerMiddleware(provider string, maxFailures int, cooldown time.Duration, collector ports.MetricsCollector) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next CoreLLM) CoreLLM {
		return &circuitBreakerLLM{next: next, cb: cb, provider: provider, collector: collector}
	}
}

// DoRequest fails fast with ErrCircuitOpen while the circuit is open.
// Otherwise it forwards the request, records the outcome and publishes the
// resulting state as a gauge.
func (c *circuitBreakerLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := c.cb.allow(); err != nil {
		if c.collector != nil {
			c.collector.RecordCounter("llm_circuit_rejections_total", 1, map[string]string{"provider": c.provider})
		}
		return "", 0, 0, err
	}

	response, tokensIn, tokensOut, err := c.next.DoRequest(ctx, prompt, opts)
	c.cb.record(err)
	if c.collector != nil {
		c.collector.RecordGauge("llm_circuit_state", float64(c.cb.State()), map[string]string{"provider": c.provider})
	}
	return response, tokensIn, tokensOut, err
}

// GetModel returns the model of the guarded provider.
func (c *circuitBreakerLLM) GetModel() string { return c.next.GetModel() }

// SetModel sets the model of the guarded provider.
func (c *circuitBreakerLLM) SetModel(m string) { c.next.SetModel(m) }
