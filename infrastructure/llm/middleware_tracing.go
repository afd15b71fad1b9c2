package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ahrav/go-jury/infrastructure/llm"

// tracedLLM wraps each provider request in a span.
type tracedLLM struct {
	next     CoreLLM
	provider string
	tracer   trace.Tracer
}

// TracingMiddleware records an "llm.request" span per request using the
// global tracer provider.
func TracingMiddleware(provider string) Middleware {
	return TracingMiddlewareWithTracer(provider, otel.Tracer(tracerName))
}

// TracingMiddlewareWithTracer is TracingMiddleware with an explicit tracer.
func TracingMiddlewareWithTracer(provider string, tracer trace.Tracer) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &tracedLLM{next: next, provider: provider, tracer: tracer}
	}
}

// DoRequest runs the request inside an "llm.request" client span. Token
// counts are added on success; failures mark the span as errored.
func (t *tracedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, span := t.tracer.Start(ctx, "llm.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", t.provider),
			attribute.String("llm.model", t.next.GetModel()),
			attribute.Int("llm.prompt.length", len(prompt)),
		),
	)
	defer span.End()

	response, tokensIn, tokensOut, err := t.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return response, tokensIn, tokensOut, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.input", tokensIn),
		attribute.Int("llm.tokens.output", tokensOut),
	)
	span.SetStatus(codes.Ok, "")
	return response, tokensIn, tokensOut, nil
}

// GetModel returns the model of the wrapped request.
func (t *tracedLLM) GetModel() string { return t.next.GetModel() }

// SetModel sets the model of the wrapped request.
func (t *tracedLLM) SetModel(m string) { t.next.SetModel(m) }
