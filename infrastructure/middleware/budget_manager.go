package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-jury/infrastructure/llm"
	"github.com/ahrav/go-jury/internal/application"
	"github.com/ahrav/go-jury/internal/ports"
)

// Budget caps what a game may spend on LLM jurors.
type Budget struct {
	// MaxTokens limits input plus output tokens. Zero means unlimited.
	MaxTokens int64

	// MaxCalls limits provider requests. Zero means unlimited.
	MaxCalls int64
}

// Usage is what has been spent against a Budget so far.
type Usage struct {
	Tokens int64
	Calls  int64
}

// BudgetExceededError reports which limit refused a request.
type BudgetExceededError struct {
	// Resource is "tokens" or "calls".
	Resource string
	Limit    int64
	Used     int64
}

// Error names the exhausted resource with its usage and limit.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s: %s used %d of %d", ports.ErrBudgetExceeded, e.Resource, e.Used, e.Limit)
}

// Unwrap returns ports.ErrBudgetExceeded so callers can match any budget
// refusal with errors.Is.
func (e *BudgetExceededError) Unwrap() error { return ports.ErrBudgetExceeded }

// BudgetObserver provides observability hooks around budgeted requests.
type BudgetObserver interface {
	// PreCheck is called once a request has been admitted, with the usage
	// that includes its call.
	PreCheck(ctx context.Context, usage Usage, budget Budget)

	// PostCheck is called after the request, or right after the refusal of
	// a request, in which case err is a *BudgetExceededError and elapsed is
	// zero.
	PostCheck(ctx context.Context, usage Usage, budget Budget, elapsed time.Duration, err error)
}

// BudgetManager enforces one Budget across every LLM client it is attached
// to, so all LLM jurors of a game draw from the same allowance. A request
// that pushes token usage past the limit still completes; the next one is
// refused.
type BudgetManager struct {
	budget   Budget
	observer BudgetObserver

	mu    sync.Mutex
	usage Usage
}

// NewBudgetManager creates a BudgetManager. observer may be nil.
func NewBudgetManager(budget Budget, observer BudgetObserver) (*BudgetManager, error) {
	if budget.MaxTokens < 0 {
		return nil, fmt.Errorf("budget manager: max_tokens cannot be negative, got %d", budget.MaxTokens)
	}
	if budget.MaxCalls < 0 {
		return nil, fmt.Errorf("budget manager: max_calls cannot be negative, got %d", budget.MaxCalls)
	}
	return &BudgetManager{budget: budget, observer: observer}, nil
}

// Budget returns the configured limits.
func (bm *BudgetManager) Budget() Budget { return bm.budget }

// Usage returns the spend so far.
func (bm *BudgetManager) Usage() Usage {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.usage
}

// Middleware returns an llm.Middleware charging requests to bm.
func (bm *BudgetManager) Middleware() llm.Middleware {
	return func(next llm.CoreLLM) llm.CoreLLM {
		return &budgetedLLM{next: next, manager: bm}
	}
}

// admit charges one call, or refuses when a limit is already reached.
func (bm *BudgetManager) admit() (Usage, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if err := bm.checkBudgetLimits(bm.usage); err != nil {
		return bm.usage, err
	}
	bm.usage.Calls++
	return bm.usage, nil
}

// charge adds tokens to the usage and returns the new usage.
func (bm *BudgetManager) charge(tokens int64) Usage {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.usage.Tokens += tokens
	return bm.usage
}

// checkBudgetLimits returns a *BudgetExceededError for the first limit
// usage has reached, tokens before calls.
func (bm *BudgetManager) checkBudgetLimits(usage Usage) error {
	if bm.budget.MaxTokens > 0 && usage.Tokens >= bm.budget.MaxTokens {
		return &BudgetExceededError{Resource: "tokens", Limit: bm.budget.MaxTokens, Used: usage.Tokens}
	}
	if bm.budget.MaxCalls > 0 && usage.Calls >= bm.budget.MaxCalls {
		return &BudgetExceededError{Resource: "calls", Limit: bm.budget.MaxCalls, Used: usage.Calls}
	}
	return nil
}

// budgetedLLM charges every request to a BudgetManager.
type budgetedLLM struct {
	next    llm.CoreLLM
	manager *BudgetManager
}

// DoRequest refuses the request when the budget is spent. Otherwise it
// forwards it and charges the tokens reported by the provider, whether or
// not the request succeeded. The observer sees both checks.
func (b *budgetedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	obs := b.manager.observer
	usage, err := b.manager.admit()
	if err != nil {
		if obs != nil {
			obs.PostCheck(ctx, usage, b.manager.budget, 0, err)
		}
		return "", 0, 0, err
	}
	if obs != nil {
		obs.PreCheck(ctx, usage, b.manager.budget)
	}

	start := time.Now()
	response, tokensIn, tokensOut, err := b.next.DoRequest(ctx, prompt, opts)
	usage = b.manager.charge(int64(tokensIn + tokensOut))

	if obs != nil {
		obs.PostCheck(ctx, usage, b.manager.budget, time.Since(start), err)
	}
	return response, tokensIn, tokensOut, err
}

// GetModel returns the model of the wrapped request.
func (b *budgetedLLM) GetModel() string { return b.next.GetModel() }

// SetModel sets the model of the wrapped request.
func (b *budgetedLLM) SetModel(m string) { b.next.SetModel(m) }

// BudgetFromConfig reads the LLM limits of the runtime configuration.
func BudgetFromConfig(config application.RuntimeConfig) Budget {
	return Budget{
		MaxTokens: config.LLMMaxTokens,
		MaxCalls:  config.LLMMaxCalls,
	}
}
