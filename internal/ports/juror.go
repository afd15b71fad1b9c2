package ports

import (
	"context"

	"github.com/ahrav/go-jury/internal/domain"
)

// Juror produces votes for the ballots a session hands it.
// A Session may call Vote concurrently for different ballots, so
// implementations must be safe for concurrent use.
type Juror interface {
	// Name returns the juror's roster name.
	Name() string

	// Vote returns the juror's vote for ballot. An implementation may
	// reject its own answer with an error wrapping domain.ErrInvalidVote or
	// ErrUnparsableVote; the Session then asks again with ballot.Attempt
	// incremented, as it does when the Game rejects the vote.
	Vote(ctx context.Context, ballot domain.Ballot) (int, error)
}

// TurnObserver receives session progress events. Observers are called
// synchronously from the session goroutine that applies votes to the game,
// so they never run concurrently with each other for a single session.
type TurnObserver interface {
	// OnVote is called after a vote was submitted to the game. err is the
	// error returned by Game.Judge, or the juror's own error.
	OnVote(ctx context.Context, ballot domain.Ballot, vote int, err error)

	// OnTurnSummarized is called after a (player, criterion) cell was averaged.
	OnTurnSummarized(ctx context.Context, result domain.TurnResult)

	// OnCriterionFinished is called after every player was judged on criterion.
	OnCriterionFinished(ctx context.Context, criterion string)

	// OnGameFinished is called once with the final report.
	OnGameFinished(ctx context.Context, report *domain.Report)
}
