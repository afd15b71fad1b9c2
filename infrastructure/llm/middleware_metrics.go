package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-jury/internal/ports"
)

// metricsLLM records provider traffic to a ports.MetricsCollector.
type metricsLLM struct {
	next      CoreLLM
	provider  string
	collector ports.MetricsCollector
}

// MetricsMiddleware records request latency, request count by status and
// token usage to collector. A nil collector disables recording.
func MetricsMiddleware(provider string, collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, provider: provider, collector: collector}
	}
}

// DoRequest forwards the request and records its latency, its outcome
// and, on success, the tokens exchanged.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)
	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.GetModel(),
		"status":   requestStatus(err),
	}
	m.collector.RecordHistogram("llm_latency_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("llm_requests_total", 1, labels)

	if err == nil {
		in := map[string]string{"provider": m.provider, "model": labels["model"], "token_type": "input"}
		out := map[string]string{"provider": m.provider, "model": labels["model"], "token_type": "output"}
		m.collector.RecordCounter("llm_tokens_total", float64(tokensIn), in)
		m.collector.RecordCounter("llm_tokens_total", float64(tokensOut), out)
	}
	return response, tokensIn, tokensOut, err
}

// requestStatus maps a request error onto the status label.
func requestStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ports.ErrTimeout):
		return "timeout"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}

// GetModel returns the model of the wrapped request.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }

// SetModel sets the model of the wrapped request.
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
