package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errSimulated = errors.New("simulated failure")

// MockCoreLLM is a configurable CoreLLM for middleware tests.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration

	// FailUntilAttempt makes the first N calls fail with Error (or
	// errSimulated when Error is nil) and later calls succeed.
	FailUntilAttempt int

	CallCount  int
	LastPrompt string
	LastOpts   map[string]any
	LastCtx    context.Context
}

func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Response:  `{"vote": 7, "reasoning": "solid"}`,
		TokensIn:  10,
		TokensOut: 20,
		Model:     "test-model",
	}
}

func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	m.LastPrompt = prompt
	m.LastOpts = opts
	m.LastCtx = ctx
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUntilAttempt > 0 {
		if call <= m.FailUntilAttempt {
			if m.Error != nil {
				return "", 0, 0, m.Error
			}
			return "", 0, 0, errSimulated
		}
		return m.Response, m.TokensIn, m.TokensOut, nil
	}
	if m.Error != nil {
		return "", 0, 0, m.Error
	}
	return m.Response, m.TokensIn, m.TokensOut, nil
}

func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

func (m *MockCoreLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// withMockProvider registers a factory returning mock under a unique
// provider name for the duration of the test.
func withMockProvider(name string, mock *MockCoreLLM) {
	RegisterProviderFactory(name, func(config ClientConfig) (CoreLLM, error) {
		if config.Model != "" {
			mock.SetModel(config.Model)
		}
		return mock, nil
	})
}
