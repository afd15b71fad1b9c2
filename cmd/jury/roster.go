package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ahrav/go-jury/infrastructure/matching"
	"github.com/ahrav/go-jury/internal/application"
	"github.com/ahrav/go-jury/internal/domain"
)

// rosterEditor edits a game in setup from loosely typed names. Removals
// resolve the typed name against the roster first, so "theo" removes
// "Théo".
type rosterEditor struct {
	game    *domain.Game
	matcher matching.Matcher
}

func newRosterEditor(game *domain.Game) *rosterEditor {
	return &rosterEditor{game: game}
}

func (e *rosterEditor) addPlayer(name string) error {
	return e.add(name, e.game.AddPlayer)
}

func (e *rosterEditor) addJuror(name string) error {
	return e.add(name, e.game.AddJuror)
}

// addContestant seats name both as a player and on the jury, the usual set
// up when friends judge each other.
func (e *rosterEditor) addContestant(name string) error {
	if err := e.addPlayer(name); err != nil {
		return err
	}
	return e.addJuror(name)
}

func (e *rosterEditor) addCriterion(name string) error {
	return e.add(name, e.game.AddCriterion)
}

func (e *rosterEditor) removePlayer(typed string) (string, error) {
	return e.remove(typed, "player", slices.Collect(e.game.Players()), e.game.RemovePlayer)
}

// removeContestant removes the resolved player and, when the same name sits
// on the jury, that juror too.
func (e *rosterEditor) removeContestant(typed string) (string, error) {
	name, err := e.removePlayer(typed)
	if err != nil {
		return "", err
	}
	if slices.Contains(slices.Collect(e.game.Jury()), name) {
		if err := e.game.RemoveJuror(name); err != nil {
			return "", err
		}
	}
	return name, nil
}

func (e *rosterEditor) removeJuror(typed string) (string, error) {
	return e.remove(typed, "juror", slices.Collect(e.game.Jury()), e.game.RemoveJuror)
}

func (e *rosterEditor) removeCriterion(typed string) (string, error) {
	return e.remove(typed, "criterion", slices.Collect(e.game.Criteria()), e.game.RemoveCriterion)
}

func (e *rosterEditor) add(name string, add func(string) error) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name cannot be empty")
	}
	return add(name)
}

func (e *rosterEditor) remove(typed, kind string, roster []string, remove func(string) error) (string, error) {
	name, err := e.matcher.Resolve(strings.TrimSpace(typed), slices.Values(roster))
	if err != nil {
		return "", fmt.Errorf("remove %s: %w", kind, err)
	}
	if err := remove(name); err != nil {
		return "", err
	}
	return name, nil
}

// applyRoster writes the rosters edited in game back into config. Jurors
// and criteria keep their declared settings; jurors added at the keyboard
// are human.
func applyRoster(config *application.GameConfig, game *domain.Game) {
	declared := make(map[string]application.JurorConfig, len(config.Jury))
	for _, jc := range config.Jury {
		if _, ok := declared[jc.Name]; !ok {
			declared[jc.Name] = jc
		}
	}
	described := make(map[string]application.CriterionConfig, len(config.Criteria))
	for _, cc := range config.Criteria {
		if _, ok := described[cc.Name]; !ok {
			described[cc.Name] = cc
		}
	}

	config.Players = slices.Collect(game.Players())

	config.Jury = nil
	for name := range game.Jury() {
		jc, ok := declared[name]
		if !ok {
			jc = application.JurorConfig{Name: name, Kind: application.KindHuman}
		}
		config.Jury = append(config.Jury, jc)
	}

	config.Criteria = nil
	for name := range game.Criteria() {
		cc, ok := described[name]
		if !ok {
			cc = application.CriterionConfig{Name: name}
		}
		config.Criteria = append(config.Criteria, cc)
	}
}
