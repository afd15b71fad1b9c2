package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStandings(t *testing.T) {
	tests := []struct {
		name        string
		results     map[string]float64
		wantRanking []PlayerScore
		wantBest    []string
		wantWorst   []string
		wantWinner  bool
	}{
		{
			name:        "empty results",
			results:     map[string]float64{},
			wantRanking: []PlayerScore{},
		},
		{
			name:        "single player is both best and worst",
			results:     map[string]float64{"Louis": 6.5},
			wantRanking: []PlayerScore{{"Louis", 6.5}},
			wantBest:    []string{"Louis"},
			wantWorst:   []string{"Louis"},
			wantWinner:  true,
		},
		{
			name:    "distinct scores",
			results: map[string]float64{"Louis": 5, "Théo": 8.25, "Jules": 2},
			wantRanking: []PlayerScore{
				{"Théo", 8.25},
				{"Louis", 5},
				{"Jules", 2},
			},
			wantBest:   []string{"Théo"},
			wantWorst:  []string{"Jules"},
			wantWinner: true,
		},
		{
			name:    "tie at the top is ordered by name",
			results: map[string]float64{"B": 9, "A": 9, "C": 1},
			wantRanking: []PlayerScore{
				{"A", 9},
				{"B", 9},
				{"C", 1},
			},
			wantBest:  []string{"A", "B"},
			wantWorst: []string{"C"},
		},
		{
			name:    "everyone tied",
			results: map[string]float64{"B": 4, "A": 4},
			wantRanking: []PlayerScore{
				{"A", 4},
				{"B", 4},
			},
			wantBest:  []string{"A", "B"},
			wantWorst: []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStandings(tt.results)

			assert.Equal(t, tt.wantRanking, s.Ranking)
			assert.Equal(t, tt.wantBest, names(s.Best))
			assert.Equal(t, tt.wantWorst, names(s.Worst))

			winner, ok := s.Winner()
			assert.Equal(t, tt.wantWinner, ok)
			if ok {
				require.NotEmpty(t, tt.wantBest)
				assert.Equal(t, tt.wantBest[0], winner.Player)
			}
		})
	}
}

func names(scores []PlayerScore) []string {
	if scores == nil {
		return nil
	}
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.Player
	}
	return out
}
