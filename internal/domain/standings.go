package domain

import (
	"cmp"
	"slices"
)

// PlayerScore pairs a player with a final score.
type PlayerScore struct {
	Player string  `json:"player"`
	Score  float64 `json:"score"`
}

// Standings orders final scores and names the best and worst players.
// Ties are kept: every player sharing the top score is in Best, and every
// player sharing the bottom score is in Worst.
type Standings struct {
	// Ranking holds every player, highest score first. Equal scores are
	// ordered by player name so the ranking is deterministic.
	Ranking []PlayerScore `json:"ranking"`

	// Best holds the players with the highest score.
	Best []PlayerScore `json:"best"`

	// Worst holds the players with the lowest score.
	Worst []PlayerScore `json:"worst"`
}

// NewStandings ranks the per-player results returned by Game.FinishGame.
// An empty result set yields empty standings.
func NewStandings(results map[string]float64) Standings {
	ranking := make([]PlayerScore, 0, len(results))
	for player, score := range results {
		ranking = append(ranking, PlayerScore{Player: player, Score: score})
	}
	if len(ranking) == 0 {
		return Standings{Ranking: ranking}
	}

	slices.SortFunc(ranking, func(a, b PlayerScore) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Player, b.Player)
	})

	top := ranking[0].Score
	bottom := ranking[len(ranking)-1].Score

	var best, worst []PlayerScore
	for _, ps := range ranking {
		if ps.Score == top {
			best = append(best, ps)
		}
		if ps.Score == bottom {
			worst = append(worst, ps)
		}
	}

	return Standings{Ranking: ranking, Best: best, Worst: worst}
}

// Winner returns the single best player. ok is false when there are no
// players or when several players share the top score.
func (s Standings) Winner() (PlayerScore, bool) {
	if len(s.Best) != 1 {
		return PlayerScore{}, false
	}
	return s.Best[0], true
}
