// Package middleware provides cross-cutting concerns for the jury engine:
// Prometheus metrics, LLM spend budgets and session observers that feed
// them.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-jury/internal/ports"
)

// Namespace prefixes every metric registered by PrometheusMetrics.
const Namespace = "jury"

// Metric names understood by PrometheusMetrics. Names it does not know are
// routed to generic per-kind vectors labelled by metric name.
const (
	MetricLLMLatency      = "llm_latency_seconds"
	MetricLLMRequests     = "llm_requests_total"
	MetricLLMTokens       = "llm_tokens_total"
	MetricVotes           = "votes_total"
	MetricVoteValue       = "vote_value"
	MetricTurnAverage     = "turn_average"
	MetricGamesFinished   = "games_finished_total"
	MetricGameDuration    = "game_duration"
	MetricBudgetUsed      = "llm_budget_used"
	MetricBudgetRemaining = "llm_budget_remaining"
	MetricBudgetExceeded  = "llm_budget_exceeded_total"
	MetricCircuitState    = "llm_circuit_state"
	MetricCircuitRejected = "llm_circuit_rejections_total"
)

// voteBuckets cover the default 0..10 vote range one unit at a time.
var voteBuckets = prometheus.LinearBuckets(0, 1, 11)

// PrometheusMetrics implements ports.MetricsCollector on top of a
// Prometheus registerer. It tracks LLM traffic, votes, turn averages and
// budget consumption for jury sessions.
type PrometheusMetrics struct {
	llmLatency   *prometheus.HistogramVec
	llmRequests  *prometheus.CounterVec
	llmTokens    *prometheus.CounterVec
	votes        *prometheus.CounterVec
	voteValue    *prometheus.HistogramVec
	turnAverage  *prometheus.HistogramVec
	games        prometheus.Counter
	gameDuration prometheus.Histogram
	budget       *prometheus.GaugeVec
	budgetLeft   *prometheus.GaugeVec
	budgetHit    *prometheus.CounterVec
	circuit      *prometheus.GaugeVec
	circuitHit   *prometheus.CounterVec

	operations  *prometheus.CounterVec
	states      *prometheus.GaugeVec
	latencies   *prometheus.HistogramVec
	observation *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the jury metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer. Registering twice on the same registerer
// panics, as promauto does.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &PrometheusMetrics{
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      MetricLLMLatency,
			Help:      "Latency of LLM provider requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "model", "status"}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricLLMRequests,
			Help:      "LLM provider requests by outcome.",
		}, []string{"provider", "model", "status"}),
		llmTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricLLMTokens,
			Help:      "Tokens exchanged with LLM providers.",
		}, []string{"provider", "model", "token_type"}),

		votes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricVotes,
			Help:      "Votes handed in by jurors, by outcome.",
		}, []string{"juror", "status"}),
		voteValue: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      MetricVoteValue,
			Help:      "Distribution of accepted votes per juror.",
			Buckets:   voteBuckets,
		}, []string{"juror"}),
		turnAverage: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      MetricTurnAverage,
			Help:      "Distribution of per-turn averages per criterion.",
			Buckets:   voteBuckets,
		}, []string{"criterion"}),
		games: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricGamesFinished,
			Help:      "Games played to the end.",
		}),
		gameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      MetricGameDuration + "_seconds",
			Help:      "Wall time of finished games.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),

		budget: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      MetricBudgetUsed,
			Help:      "LLM budget consumed so far by resource.",
		}, []string{"resource"}),
		budgetLeft: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      MetricBudgetRemaining,
			Help:      "LLM budget left by resource.",
		}, []string{"resource"}),
		budgetHit: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricBudgetExceeded,
			Help:      "LLM requests refused because a budget limit was reached.",
		}, []string{"resource"}),

		circuit: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      MetricCircuitState,
			Help:      "Circuit breaker state per provider: 0 closed, 1 open, 2 half open.",
		}, []string{"provider"}),
		circuitHit: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricCircuitRejected,
			Help:      "LLM requests refused by an open circuit breaker.",
		}, []string{"provider"}),

		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Counters recorded under names without a dedicated metric.",
		}, []string{"operation"}),
		states: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "state",
			Help:      "Gauges recorded under names without a dedicated metric.",
		}, []string{"metric"}),
		latencies: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latencies recorded under names without a dedicated metric.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		observation: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "observations",
			Help:      "Histogram values recorded under names without a dedicated metric.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
	}
}

// RecordLatency records duration for operation. Game durations go to their
// own histogram; everything else shares operation_duration_seconds.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	if operation == MetricGameDuration {
		pm.gameDuration.Observe(duration.Seconds())
		return
	}
	pm.latencies.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter adds value to the counter named by metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricLLMRequests:
		pm.llmRequests.WithLabelValues(
			label(labels, "provider"), label(labels, "model"), label(labels, "status"),
		).Add(value)
	case MetricLLMTokens:
		pm.llmTokens.WithLabelValues(
			label(labels, "provider"), label(labels, "model"), label(labels, "token_type"),
		).Add(value)
	case MetricVotes:
		pm.votes.WithLabelValues(label(labels, "juror"), label(labels, "status")).Add(value)
	case MetricGamesFinished:
		pm.games.Add(value)
	case MetricBudgetExceeded:
		pm.budgetHit.WithLabelValues(label(labels, "resource")).Add(value)
	case MetricCircuitRejected:
		pm.circuitHit.WithLabelValues(label(labels, "provider")).Add(value)
	default:
		pm.operations.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge named by metric to value.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricBudgetUsed:
		pm.budget.WithLabelValues(label(labels, "resource")).Set(value)
	case MetricBudgetRemaining:
		pm.budgetLeft.WithLabelValues(label(labels, "resource")).Set(value)
	case MetricCircuitState:
		pm.circuit.WithLabelValues(label(labels, "provider")).Set(value)
	default:
		pm.states.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram observes value in the histogram named by metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricLLMLatency:
		pm.llmLatency.WithLabelValues(
			label(labels, "provider"), label(labels, "model"), label(labels, "status"),
		).Observe(value)
	case MetricVoteValue:
		pm.voteValue.WithLabelValues(label(labels, "juror")).Observe(value)
	case MetricTurnAverage:
		pm.turnAverage.WithLabelValues(label(labels, "criterion")).Observe(value)
	default:
		pm.observation.WithLabelValues(metric).Observe(value)
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
