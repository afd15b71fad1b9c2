// Package application drives jury-judged games: it loads game
// configuration, builds jurors and plays sessions against the domain Game.
package application

import (
	"time"

	"github.com/ahrav/go-jury/infrastructure/jurors"
	"github.com/ahrav/go-jury/internal/domain"
)

// GameConfig describes one game: its rosters, who sits on the jury and how
// the session driving it behaves. It is the document a Loader reads from
// YAML.
type GameConfig struct {
	// Version is the configuration schema version (X.Y.Z).
	Version string `yaml:"version" validate:"required,semver"`

	Metadata Metadata `yaml:"metadata"`

	// Players lists the contestants. Names may repeat; repeated names
	// share one score cell.
	Players []string `yaml:"players" validate:"max=100,dive,required,max=100"`

	// Criteria lists the axes players are judged on, in declaration order.
	Criteria []CriterionConfig `yaml:"criteria" validate:"max=50,dive"`

	// Jury lists the jurors. Every juror votes on every (player, criterion).
	Jury []JurorConfig `yaml:"jury" validate:"max=50,dive"`

	Session SessionConfig `yaml:"session"`
}

// Metadata carries descriptive information about a game.
type Metadata struct {
	Name        string `yaml:"name" validate:"max=255"`
	Description string `yaml:"description" validate:"max=1000"`
}

// CriterionConfig names a criterion and optionally explains it to jurors.
type CriterionConfig struct {
	Name        string `yaml:"name" validate:"required,max=100"`
	Description string `yaml:"description" validate:"max=1000"`
}

// JurorConfig selects how one juror produces its votes.
type JurorConfig struct {
	Name string `yaml:"name" validate:"required,max=100"`

	// Kind names the juror factory, e.g. "human", "scripted" or "llm".
	Kind string `yaml:"kind" validate:"required,jurorref"`

	// Model is the "provider/model" an llm juror talks to.
	Model string `yaml:"model,omitempty" validate:"required_if=Kind llm,omitempty,modelformat"`

	// Script holds the votes of a scripted juror.
	Script *jurors.Script `yaml:"script,omitempty" validate:"required_if=Kind scripted"`

	// LLM tunes an llm juror. Nil selects jurors.DefaultLLMJurorConfig.
	LLM *jurors.LLMJurorConfig `yaml:"llm,omitempty"`
}

// Session defaults applied to zero SessionConfig fields.
const (
	DefaultMaxConcurrency  = 4
	DefaultMaxVoteAttempts = 3
)

// SessionConfig controls how a Session collects votes.
type SessionConfig struct {
	// MaxConcurrency bounds the number of jurors asked at once for one
	// player. Zero selects DefaultMaxConcurrency.
	MaxConcurrency int `yaml:"max_concurrency" validate:"omitempty,min=1,max=64"`

	// MaxVoteAttempts bounds how often a juror is asked for the same
	// ballot after invalid answers. Zero selects DefaultMaxVoteAttempts.
	MaxVoteAttempts int `yaml:"max_vote_attempts" validate:"omitempty,min=1,max=10"`

	// VoteTimeout bounds a single Vote call. Zero means no timeout.
	VoteTimeout time.Duration `yaml:"vote_timeout" validate:"omitempty,min=1s,max=1h"`

	// Seed makes player and criterion shuffles reproducible.
	Seed *uint64 `yaml:"seed,omitempty"`
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MaxVoteAttempts == 0 {
		c.MaxVoteAttempts = DefaultMaxVoteAttempts
	}
	return c
}

// CriterionNames returns the criteria names in declaration order.
func (c *GameConfig) CriterionNames() []string {
	names := make([]string, len(c.Criteria))
	for i, cr := range c.Criteria {
		names[i] = cr.Name
	}
	return names
}

// JurorNames returns the jury names in declaration order.
func (c *GameConfig) JurorNames() []string {
	names := make([]string, len(c.Jury))
	for i, j := range c.Jury {
		names[i] = j.Name
	}
	return names
}

// Descriptions maps criterion names to their non-empty descriptions.
func (c *GameConfig) Descriptions() map[string]string {
	d := make(map[string]string)
	for _, cr := range c.Criteria {
		if cr.Description != "" {
			d[cr.Name] = cr.Description
		}
	}
	return d
}

// NewGame returns a Game in setup with the configured rosters. A configured
// seed installs a deterministic shuffler; opts are applied afterwards.
func (c *GameConfig) NewGame(opts ...domain.Option) *domain.Game {
	base := []domain.Option{
		domain.WithPlayers(c.Players...),
		domain.WithJury(c.JurorNames()...),
		domain.WithCriteria(c.CriterionNames()...),
	}
	if c.Session.Seed != nil {
		base = append(base, domain.WithShuffler(domain.NewSeededShuffler(*c.Session.Seed)))
	}
	return domain.NewGame(append(base, opts...)...)
}
