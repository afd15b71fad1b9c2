package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-jury/internal/domain"
	"github.com/ahrav/go-jury/internal/ports"
)

var (
	// ErrCannotStart indicates a game without at least one player, one
	// juror and one criterion.
	ErrCannotStart = errors.New("game cannot start: need at least one player, juror and criterion")

	// ErrJuryMismatch indicates that the jurors handed to a session do not
	// match the game's jury roster.
	ErrJuryMismatch = errors.New("jurors do not match the jury roster")

	// ErrNoValidVote indicates that a juror used up its attempts without
	// producing a vote the game accepted.
	ErrNoValidVote = errors.New("no valid vote")
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithObservers adds observers notified of session progress.
func WithObservers(observers ...ports.TurnObserver) SessionOption {
	return func(s *Session) { s.observers = append(s.observers, observers...) }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for session spans.
func WithTracer(tracer trace.Tracer) SessionOption {
	return func(s *Session) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithDescriptions sets the criterion descriptions put on ballots.
func WithDescriptions(descriptions map[string]string) SessionOption {
	return func(s *Session) { s.descriptions = descriptions }
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator for session ids.
func WithIDGenerator(newID func() string) SessionOption {
	return func(s *Session) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Session plays one game to the end with a set of jurors.
//
// For each criterion, in the game's order, and each player, in the order
// the game had when the criterion began, a Session asks every juror for a
// vote concurrently, then records the votes in jury order from a single
// goroutine, summarizes the turn and moves on. The Game is only ever
// touched from the goroutine calling Play.
type Session struct {
	game         *domain.Game
	jurors       []ports.Juror
	config       SessionConfig
	descriptions map[string]string
	observers    []ports.TurnObserver
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	newID        func() string
}

// NewSession creates a Session for a game still in setup. jurors must match
// the game's jury roster name for name, in order.
func NewSession(game *domain.Game, jurors []ports.Juror, config SessionConfig, opts ...SessionOption) (*Session, error) {
	if game == nil {
		return nil, errors.New("game cannot be nil")
	}
	if game.Phase() != domain.PhaseSetup {
		return nil, domain.NewGameError("NewSession", "", domain.ErrInvalidPhase)
	}

	roster := slices.Collect(game.Jury())
	if len(roster) != len(jurors) {
		return nil, fmt.Errorf("%w: %d jurors for a jury of %d", ErrJuryMismatch, len(jurors), len(roster))
	}
	for i, name := range roster {
		if jurors[i] == nil || jurors[i].Name() != name {
			return nil, fmt.Errorf("%w: position %d should be %q", ErrJuryMismatch, i, name)
		}
	}

	s := &Session{
		game:   game,
		jurors: jurors,
		config: config.withDefaults(),
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("github.com/ahrav/go-jury/session"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewSessionFromConfig builds the game and its jurors from config.
func NewSessionFromConfig(config *GameConfig, registry *JurorRegistry, opts ...SessionOption) (*Session, error) {
	jurors, err := registry.Build(config)
	if err != nil {
		return nil, err
	}
	opts = append([]SessionOption{WithDescriptions(config.Descriptions())}, opts...)
	return NewSession(config.NewGame(), jurors, config.Session, opts...)
}

// Play runs the game to completion and returns its report. It fails with
// ErrCannotStart unless the game can start. Cancelling ctx stops the game
// before the next ballot; the game is left active and partially scored.
func (s *Session) Play(ctx context.Context) (report *domain.Report, err error) {
	if !s.game.CanStart() {
		return nil, ErrCannotStart
	}

	id := s.newID()
	ctx, span := s.tracer.Start(ctx, "Session.Play", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Int("session.players", s.game.PlayerCount()),
		attribute.Int("session.jurors", s.game.JuryCount()),
		attribute.Int("session.criteria", s.game.CriterionCount()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	logger := s.logger.With("session", id)
	if err := s.game.Set(); err != nil {
		return nil, err
	}

	report = &domain.Report{
		SessionID: id,
		Criteria:  slices.Collect(s.game.Criteria()),
		StartedAt: s.now(),
	}
	logger.InfoContext(ctx, "session started",
		"players", s.game.PlayerCount(),
		"jurors", s.game.JuryCount(),
		"criteria", report.Criteria)

	for _, criterion := range report.Criteria {
		turns, err := s.playCriterion(ctx, criterion)
		report.Turns = append(report.Turns, turns...)
		if err != nil {
			return nil, err
		}
	}

	results, err := s.game.FinishGame()
	if err != nil {
		return nil, err
	}
	report.Results = results
	report.Standings = domain.NewStandings(results)
	report.FinishedAt = s.now()

	logger.InfoContext(ctx, "session finished", "best", report.Standings.Best, "duration", report.Duration())
	for _, o := range s.observers {
		o.OnGameFinished(ctx, report)
	}
	return report, nil
}

// playCriterion judges every player on criterion, in the player order
// current when it starts, then reshuffles the players. Repeated player
// names share a cell and are judged once.
func (s *Session) playCriterion(ctx context.Context, criterion string) ([]domain.TurnResult, error) {
	players := slices.Collect(s.game.Players())
	seen := make(map[string]bool, len(players))

	var turns []domain.TurnResult
	for _, player := range players {
		if seen[player] {
			continue
		}
		seen[player] = true

		if err := ctx.Err(); err != nil {
			return turns, err
		}
		turn, err := s.playTurn(ctx, player, criterion)
		if err != nil {
			return turns, err
		}
		turns = append(turns, turn)
	}

	if err := s.game.FinishTurn(); err != nil {
		return turns, err
	}
	for _, o := range s.observers {
		o.OnCriterionFinished(ctx, criterion)
	}
	return turns, nil
}

func (s *Session) playTurn(ctx context.Context, player, criterion string) (_ domain.TurnResult, err error) {
	ctx, span := s.tracer.Start(ctx, "Session.Turn", trace.WithAttributes(
		attribute.String("turn.player", player),
		attribute.String("turn.criterion", criterion),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	answers, err := s.collectAll(ctx, player, criterion)
	if err != nil {
		return domain.TurnResult{}, err
	}

	votes := make(map[string]int, len(s.jurors))
	for i, juror := range s.jurors {
		vote, err := s.record(ctx, juror, answers[i])
		if err != nil {
			return domain.TurnResult{}, err
		}
		votes[juror.Name()] = vote
	}

	avg, err := s.game.SummarizeTurn(player, criterion)
	if err != nil {
		return domain.TurnResult{}, err
	}
	span.SetAttributes(attribute.Float64("turn.average", avg))

	result := domain.TurnResult{Player: player, Criterion: criterion, Votes: votes, Average: avg}
	s.logger.DebugContext(ctx, "turn summarized", "player", player, "criterion", criterion, "average", avg)
	for _, o := range s.observers {
		o.OnTurnSummarized(ctx, result)
	}
	return result, nil
}

type rejectedVote struct {
	ballot domain.Ballot
	vote   int
	err    error
}

// answer is what collect got from one juror: the accepted vote with the
// ballot that produced it, and the attempts the juror rejected on the way.
type answer struct {
	ballot   domain.Ballot
	vote     int
	rejected []rejectedVote
}

// collectAll asks every juror for its first vote, at most MaxConcurrency at
// a time. The first hard failure cancels the others.
func (s *Session) collectAll(ctx context.Context, player, criterion string) ([]answer, error) {
	answers := make([]answer, len(s.jurors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrency)
	for i, juror := range s.jurors {
		ballot := domain.Ballot{
			Juror:       juror.Name(),
			Player:      player,
			Criterion:   criterion,
			Description: s.descriptions[criterion],
			Attempt:     1,
		}
		g.Go(func() error {
			a, err := s.collect(gctx, juror, ballot)
			answers[i] = a
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

// collect asks juror until it returns a vote it does not reject itself, or
// MaxVoteAttempts is reached.
func (s *Session) collect(ctx context.Context, juror ports.Juror, ballot domain.Ballot) (answer, error) {
	var a answer
	for {
		vote, err := s.vote(ctx, juror, ballot)
		if err == nil {
			a.ballot, a.vote = ballot, vote
			return a, nil
		}
		if !isRejection(err) {
			return a, err
		}
		if ballot.Attempt >= s.config.MaxVoteAttempts {
			return a, fmt.Errorf("%w from juror %s for %s/%s after %d attempts: %w",
				ErrNoValidVote, juror.Name(), ballot.Player, ballot.Criterion, ballot.Attempt, err)
		}
		a.rejected = append(a.rejected, rejectedVote{ballot: ballot, err: err})
		ballot.Attempt++
	}
}

func (s *Session) vote(ctx context.Context, juror ports.Juror, ballot domain.Ballot) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.config.VoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.VoteTimeout)
		defer cancel()
	}
	return juror.Vote(ctx, ballot)
}

// record submits a's vote to the game. A vote the game rejects as invalid
// sends the juror back for another attempt, within MaxVoteAttempts.
func (s *Session) record(ctx context.Context, juror ports.Juror, a answer) (int, error) {
	for {
		for _, r := range a.rejected {
			s.notifyVote(ctx, r.ballot, r.vote, r.err)
		}

		err := s.game.Judge(a.ballot.Player, a.ballot.Criterion, a.vote)
		s.notifyVote(ctx, a.ballot, a.vote, err)
		if err == nil {
			return a.vote, nil
		}
		if !errors.Is(err, domain.ErrInvalidVote) {
			return 0, err
		}
		if a.ballot.Attempt >= s.config.MaxVoteAttempts {
			return 0, fmt.Errorf("%w from juror %s for %s/%s after %d attempts: %w",
				ErrNoValidVote, juror.Name(), a.ballot.Player, a.ballot.Criterion, a.ballot.Attempt, err)
		}

		s.logger.WarnContext(ctx, "vote rejected, asking again",
			"juror", juror.Name(), "player", a.ballot.Player, "criterion", a.ballot.Criterion,
			"vote", a.vote, "attempt", a.ballot.Attempt)

		next := a.ballot
		next.Attempt++
		if a, err = s.collect(ctx, juror, next); err != nil {
			return 0, err
		}
	}
}

func (s *Session) notifyVote(ctx context.Context, ballot domain.Ballot, vote int, err error) {
	for _, o := range s.observers {
		o.OnVote(ctx, ballot, vote, err)
	}
}

// isRejection reports whether a juror error means "ask again" rather than
// "give up".
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidVote) || errors.Is(err, ports.ErrUnparsableVote)
}
