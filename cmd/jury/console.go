package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/ahrav/go-jury/internal/domain"
	"github.com/ahrav/go-jury/internal/ports"
)

var errQuit = errors.New("quit before the game started")

// ptermPrompt asks through an interactive text input.
func ptermPrompt(_ context.Context, question string) (string, error) {
	return pterm.DefaultInteractiveTextInput.Show(question)
}

const (
	menuAddContestant    = "Add player and juror"
	menuRemoveContestant = "Remove player and juror"
	menuAddPlayer        = "Add player"
	menuRemovePlayer     = "Remove player"
	menuAddJuror         = "Add juror"
	menuRemoveJuror      = "Remove juror"
	menuAddCriterion     = "Add criterion"
	menuRemoveCriterion  = "Remove criterion"
	menuStart            = "Start game"
	menuQuit             = "Quit"
)

// editRoster runs the setup menu until the game can start and the user
// chooses to, or quits.
func editRoster(e *rosterEditor) error {
	menu := []string{
		menuStart,
		menuAddContestant, menuRemoveContestant,
		menuAddPlayer, menuRemovePlayer,
		menuAddJuror, menuRemoveJuror,
		menuAddCriterion, menuRemoveCriterion,
		menuQuit,
	}
	for {
		renderRoster(e.game)
		choice, err := pterm.DefaultInteractiveSelect.WithDefaultText("Game setup").WithOptions(menu).Show()
		if err != nil {
			return err
		}

		switch choice {
		case menuStart:
			if e.game.CanStart() {
				return nil
			}
			pterm.Warning.Println("A game needs at least one player, one juror and one criterion.")
			continue
		case menuQuit:
			return errQuit
		}

		typed, err := pterm.DefaultInteractiveTextInput.Show("Name")
		if err != nil {
			return err
		}
		if err := applyMenuChoice(e, choice, typed); err != nil {
			pterm.Error.Println(err)
		}
	}
}

func applyMenuChoice(e *rosterEditor, choice, typed string) error {
	var (
		removed string
		err     error
	)
	switch choice {
	case menuAddContestant:
		return e.addContestant(typed)
	case menuAddPlayer:
		return e.addPlayer(typed)
	case menuAddJuror:
		return e.addJuror(typed)
	case menuAddCriterion:
		return e.addCriterion(typed)
	case menuRemoveContestant:
		removed, err = e.removeContestant(typed)
	case menuRemovePlayer:
		removed, err = e.removePlayer(typed)
	case menuRemoveJuror:
		removed, err = e.removeJuror(typed)
	case menuRemoveCriterion:
		removed, err = e.removeCriterion(typed)
	default:
		return fmt.Errorf("unknown menu entry %q", choice)
	}
	if err == nil {
		pterm.Info.Printfln("Removed %s", removed)
	}
	return err
}

func renderRoster(game *domain.Game) {
	data := pterm.TableData{
		{"Players", strings.Join(slices.Collect(game.Players()), ", ")},
		{"Jury", strings.Join(slices.Collect(game.Jury()), ", ")},
		{"Criteria", strings.Join(slices.Collect(game.Criteria()), ", ")},
	}
	_ = pterm.DefaultTable.WithData(data).Render()
}

// consoleObserver prints session progress to the terminal.
type consoleObserver struct{}

var _ ports.TurnObserver = consoleObserver{}

func (consoleObserver) OnVote(_ context.Context, ballot domain.Ballot, vote int, err error) {
	if err != nil {
		pterm.Warning.Printfln("%s's vote for %s on %s was not accepted: %v",
			ballot.Juror, ballot.Player, ballot.Criterion, err)
		return
	}
	pterm.Info.Printfln("%s gives %s %d on %s", ballot.Juror, ballot.Player, vote, ballot.Criterion)
}

func (consoleObserver) OnTurnSummarized(_ context.Context, result domain.TurnResult) {
	pterm.Success.Printfln("%s scores %.2f on %s", result.Player, result.Average, result.Criterion)
}

func (consoleObserver) OnCriterionFinished(_ context.Context, criterion string) {
	pterm.DefaultSection.Printfln("%s judged", criterion)
}

func (consoleObserver) OnGameFinished(_ context.Context, report *domain.Report) {
	pterm.DefaultSection.Println("Final standings")
	_ = pterm.DefaultTable.WithHasHeader().WithData(standingsTable(report.Standings)).Render()
	pterm.DefaultBox.WithTitle("Podium").Println(podium(report.Standings))
}

// standingsTable lays out a ranking with shared places for tied scores.
func standingsTable(s domain.Standings) pterm.TableData {
	data := pterm.TableData{{"Place", "Player", "Score"}}
	place := 0
	for i, ps := range s.Ranking {
		if i == 0 || ps.Score != s.Ranking[i-1].Score {
			place = i + 1
		}
		data = append(data, []string{strconv.Itoa(place), ps.Player, strconv.FormatFloat(ps.Score, 'f', 2, 64)})
	}
	return data
}

// podium names the winner, or the players sharing the top score, and the
// worst players.
func podium(s domain.Standings) string {
	if len(s.Best) == 0 {
		return "Nobody played."
	}
	lines := []string{"Best: " + joinScores(s.Best)}
	if winner, ok := s.Winner(); ok {
		lines[0] = "Winner: " + joinScores([]domain.PlayerScore{winner})
	}
	if len(s.Ranking) > len(s.Best) {
		lines = append(lines, "Worst: "+joinScores(s.Worst))
	}
	return strings.Join(lines, "\n")
}

func joinScores(scores []domain.PlayerScore) string {
	parts := make([]string, len(scores))
	for i, ps := range scores {
		parts[i] = fmt.Sprintf("%s (%.2f)", ps.Player, ps.Score)
	}
	return strings.Join(parts, ", ")
}
