package ports

import (
	"context"
	"time"
)

// LLMClient is the completion interface an LLM-backed juror talks to.
// Implementations handle provider authentication, request formatting,
// and response parsing.
type LLMClient interface {
	// Complete sends prompt to the provider and returns the generated text.
	// Recognized options are "temperature" (float64), "max_tokens" (int),
	// "model" (string) and "system" (string); providers ignore options they
	// do not support.
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens returns an approximate token count for text.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier used by this client.
	GetModel() string
}

// MetricsCollector records operational metrics for sessions and the LLM
// clients behind jurors.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric by value.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram observes value in a histogram, such as a vote or a
	// turn average.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
