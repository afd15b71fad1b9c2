package middleware

import (
	"context"
	"errors"

	"github.com/ahrav/go-jury/internal/domain"
	"github.com/ahrav/go-jury/internal/ports"
)

// MetricsObserver is a ports.TurnObserver that turns session events into
// metrics on a ports.MetricsCollector.
type MetricsObserver struct {
	metrics ports.MetricsCollector
}

// NewMetricsObserver returns an observer recording to metrics.
func NewMetricsObserver(metrics ports.MetricsCollector) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

// OnVote counts the vote by outcome and records accepted values.
func (o *MetricsObserver) OnVote(_ context.Context, ballot domain.Ballot, vote int, err error) {
	o.metrics.RecordCounter(MetricVotes, 1, map[string]string{
		"juror":  ballot.Juror,
		"status": voteStatus(err),
	})
	if err == nil {
		o.metrics.RecordHistogram(MetricVoteValue, float64(vote), map[string]string{"juror": ballot.Juror})
	}
}

// OnTurnSummarized records the turn average under its criterion.
func (o *MetricsObserver) OnTurnSummarized(_ context.Context, result domain.TurnResult) {
	o.metrics.RecordHistogram(MetricTurnAverage, result.Average, map[string]string{"criterion": result.Criterion})
}

func (o *MetricsObserver) OnCriterionFinished(context.Context, string) {}

// OnGameFinished counts the game and records how long it took.
func (o *MetricsObserver) OnGameFinished(_ context.Context, report *domain.Report) {
	o.metrics.RecordCounter(MetricGamesFinished, 1, nil)
	o.metrics.RecordLatency(MetricGameDuration, report.Duration(), nil)
}

func voteStatus(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domain.ErrInvalidVote), errors.Is(err, ports.ErrUnparsableVote):
		return "rejected"
	default:
		return "error"
	}
}

var _ ports.TurnObserver = (*MetricsObserver)(nil)
