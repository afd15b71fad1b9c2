// Package jurors provides ports.Juror implementations: a scripted juror for
// replays and tests, a console juror for people at the keyboard and a juror
// backed by a language model.
package jurors

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ahrav/go-jury/internal/domain"
	"github.com/ahrav/go-jury/internal/ports"
)

var _ ports.Juror = (*ScriptedJuror)(nil)

// Script holds the votes a ScriptedJuror answers with.
type Script struct {
	// Votes maps player -> criterion -> successive votes. Each ballot for a
	// cell consumes the next vote; the last one repeats.
	Votes map[string]map[string][]int `yaml:"votes" json:"votes"`

	// Default answers ballots for cells missing from Votes.
	Default *int `yaml:"default" json:"default"`
}

// ScriptedJuror answers ballots from a fixed Script.
type ScriptedJuror struct {
	name   string
	script Script

	mu     sync.Mutex
	served map[domain.CellRef]int
}

// NewScriptedJuror creates a ScriptedJuror. The script is copied.
func NewScriptedJuror(name string, script Script) (*ScriptedJuror, error) {
	if name == "" {
		return nil, errors.New("juror name cannot be empty")
	}

	votes := make(map[string]map[string][]int, len(script.Votes))
	for player, byCriterion := range script.Votes {
		votes[player] = make(map[string][]int, len(byCriterion))
		for criterion, seq := range byCriterion {
			if len(seq) == 0 {
				continue
			}
			votes[player][criterion] = append([]int(nil), seq...)
		}
	}
	script.Votes = votes
	if script.Default != nil {
		d := *script.Default
		script.Default = &d
	}

	return &ScriptedJuror{
		name:   name,
		script: script,
		served: make(map[domain.CellRef]int),
	}, nil
}

// Name returns the juror's roster name.
func (j *ScriptedJuror) Name() string { return j.name }

// Vote returns the next scripted vote for the ballot's cell, or the default.
// It fails with ports.ErrNoVote when neither exists. Votes are returned as
// scripted, without range checks.
func (j *ScriptedJuror) Vote(ctx context.Context, ballot domain.Ballot) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, ports.NewJurorError(j.name, ballot.Attempt, err)
	}

	seq := j.script.Votes[ballot.Player][ballot.Criterion]
	if len(seq) == 0 {
		if j.script.Default == nil {
			return 0, ports.NewJurorError(j.name, ballot.Attempt,
				fmt.Errorf("%w for %s", ports.ErrNoVote, domain.CellRef{Player: ballot.Player, Criterion: ballot.Criterion}))
		}
		return *j.script.Default, nil
	}

	ref := domain.CellRef{Player: ballot.Player, Criterion: ballot.Criterion}
	j.mu.Lock()
	i := min(j.served[ref], len(seq)-1)
	j.served[ref]++
	j.mu.Unlock()

	return seq[i], nil
}
