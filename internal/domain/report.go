package domain

import (
	"time"
)

// Ballot is the request handed to a juror for one vote.
type Ballot struct {
	// Juror is the name of the juror being asked.
	Juror string `json:"juror"`

	// Player is the player being judged.
	Player string `json:"player"`

	// Criterion is the axis of evaluation.
	Criterion string `json:"criterion"`

	// Description optionally explains the criterion to the juror.
	Description string `json:"description,omitempty"`

	// Attempt counts from 1 and grows when a previous vote was rejected.
	Attempt int `json:"attempt"`
}

// TurnResult records the outcome of one (player, criterion) pass.
type TurnResult struct {
	Player    string `json:"player"`
	Criterion string `json:"criterion"`

	// Votes maps each juror to the vote that was recorded.
	Votes map[string]int `json:"votes"`

	// Average is the value returned by Game.SummarizeTurn.
	Average float64 `json:"average"`
}

// Report is the final outcome of a played session.
type Report struct {
	// SessionID uniquely identifies this session (a UUID).
	SessionID string `json:"session_id"`

	// Criteria lists the criteria in the order they were played.
	Criteria []string `json:"criteria"`

	// Turns holds every (player, criterion) pass in play order.
	Turns []TurnResult `json:"turns"`

	// Results maps each player to the value returned by Game.FinishGame.
	Results map[string]float64 `json:"results"`

	// Standings ranks Results.
	Standings Standings `json:"standings"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the session took.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
