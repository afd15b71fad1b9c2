package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-jury/internal/ports"
)

// Fractions of a limit at which span events warn about budget consumption.
const (
	budgetWarningThreshold  = 0.8
	budgetCriticalThreshold = 0.9
)

var _ BudgetObserver = (*OTelBudgetObserver)(nil)

// OTelBudgetObserver annotates the span active in the request context with
// budget usage and threshold events, and mirrors usage to an optional
// metrics collector. It keeps no per-request state and is safe for
// concurrent use.
type OTelBudgetObserver struct {
	metrics ports.MetricsCollector
}

// NewOTelBudgetObserver creates an observer. metrics may be nil.
func NewOTelBudgetObserver(metrics ports.MetricsCollector) *OTelBudgetObserver {
	return &OTelBudgetObserver{metrics: metrics}
}

// PreCheck records the admitted usage and any threshold crossings.
func (o *OTelBudgetObserver) PreCheck(ctx context.Context, usage Usage, budget Budget) {
	span := trace.SpanFromContext(ctx)
	addBudgetAttributes(span, usage, budget)
	checkBudgetThresholds(span, "tokens", usage.Tokens, budget.MaxTokens)
	checkBudgetThresholds(span, "calls", usage.Calls, budget.MaxCalls)
}

// PostCheck records the usage after a request and flags refusals.
func (o *OTelBudgetObserver) PostCheck(ctx context.Context, usage Usage, budget Budget, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	addBudgetAttributes(span, usage, budget)

	var exceeded *BudgetExceededError
	if errors.As(err, &exceeded) {
		span.AddEvent("budget.exceeded", trace.WithAttributes(
			attribute.String("resource", exceeded.Resource),
			attribute.Int64("limit", exceeded.Limit),
			attribute.Int64("used", exceeded.Used),
		))
		span.SetStatus(codes.Error, "llm budget exceeded")
		if o.metrics != nil {
			o.metrics.RecordCounter(MetricBudgetExceeded, 1, map[string]string{"resource": exceeded.Resource})
		}
		return
	}

	span.AddEvent("budget.usage_tracked", trace.WithAttributes(
		attribute.Int64("tokens_consumed", usage.Tokens),
		attribute.Int64("calls_made", usage.Calls),
		attribute.Int64("elapsed_ms", elapsed.Milliseconds()),
	))
	o.updateMetrics(usage, budget)
}

func addBudgetAttributes(span trace.Span, usage Usage, budget Budget) {
	span.SetAttributes(
		attribute.Int64("budget.tokens_used", usage.Tokens),
		attribute.Int64("budget.calls_made", usage.Calls),
	)
	if budget.MaxTokens > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_tokens", budget.MaxTokens),
			attribute.Int64("budget.remaining_tokens", max(budget.MaxTokens-usage.Tokens, 0)),
		)
	}
	if budget.MaxCalls > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_calls", budget.MaxCalls),
			attribute.Int64("budget.remaining_calls", max(budget.MaxCalls-usage.Calls, 0)),
		)
	}
}

func checkBudgetThresholds(span trace.Span, resource string, used, limit int64) {
	if limit <= 0 {
		return
	}
	ratio := float64(used) / float64(limit)
	var event string
	switch {
	case ratio >= budgetCriticalThreshold:
		event = "budget.threshold.critical"
	case ratio >= budgetWarningThreshold:
		event = "budget.threshold.warning"
	default:
		return
	}
	span.AddEvent(event, trace.WithAttributes(
		attribute.String("resource_type", resource),
		attribute.Float64("usage_percentage", ratio*100),
	))
}

func (o *OTelBudgetObserver) updateMetrics(usage Usage, budget Budget) {
	if o.metrics == nil {
		return
	}
	tokens := map[string]string{"resource": "tokens"}
	calls := map[string]string{"resource": "calls"}
	o.metrics.RecordGauge(MetricBudgetUsed, float64(usage.Tokens), tokens)
	o.metrics.RecordGauge(MetricBudgetUsed, float64(usage.Calls), calls)
	if budget.MaxTokens > 0 {
		o.metrics.RecordGauge(MetricBudgetRemaining, float64(max(budget.MaxTokens-usage.Tokens, 0)), tokens)
	}
	if budget.MaxCalls > 0 {
		o.metrics.RecordGauge(MetricBudgetRemaining, float64(max(budget.MaxCalls-usage.Calls, 0)), calls)
	}
}
