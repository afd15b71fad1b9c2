package jurors

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ahrav/go-jury/internal/domain"
	"github.com/ahrav/go-jury/internal/ports"
)

var _ ports.Juror = (*ConsoleJuror)(nil)

// Prompter asks a person question and returns what they typed.
type Prompter func(ctx context.Context, question string) (string, error)

// Console is a terminal shared by several ConsoleJurors. It asks one
// question at a time even when a session collects votes concurrently.
type Console struct {
	mu     sync.Mutex
	prompt Prompter
}

// NewConsole returns a Console asking through prompt.
func NewConsole(prompt Prompter) *Console {
	return &Console{prompt: prompt}
}

// Juror returns a ConsoleJuror named name that asks through c.
func (c *Console) Juror(name string) (*ConsoleJuror, error) {
	if name == "" {
		return nil, errors.New("juror name cannot be empty")
	}
	return &ConsoleJuror{name: name, console: c}, nil
}

// ConsoleJuror asks a person at the keyboard for each vote.
type ConsoleJuror struct {
	name    string
	console *Console
}

// Name returns the juror's roster name.
func (j *ConsoleJuror) Name() string { return j.name }

// Vote asks for a whole number. Anything else fails with
// ports.ErrUnparsableVote so the session asks again; the range is left to
// the game.
func (j *ConsoleJuror) Vote(ctx context.Context, ballot domain.Ballot) (int, error) {
	j.console.mu.Lock()
	defer j.console.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, ports.NewJurorError(j.name, ballot.Attempt, err)
	}

	answer, err := j.console.prompt(ctx, question(j.name, ballot))
	if err != nil {
		return 0, ports.NewJurorError(j.name, ballot.Attempt, err)
	}
	vote, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return 0, ports.NewJurorError(j.name, ballot.Attempt, fmt.Errorf("%w: %q", ports.ErrUnparsableVote, answer))
	}
	return vote, nil
}

func question(juror string, ballot domain.Ballot) string {
	var b strings.Builder
	if ballot.Attempt > 1 {
		b.WriteString("Try again. ")
	}
	fmt.Fprintf(&b, "%s, your vote for %s on %s (%d-%d)",
		juror, ballot.Player, ballot.Criterion, domain.MinVote, domain.MaxVote)
	if ballot.Description != "" {
		fmt.Fprintf(&b, " [%s]", ballot.Description)
	}
	return b.String()
}
