package jurors

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-jury/internal/domain"
	"github.com/ahrav/go-jury/internal/ports"
)

// scriptedPrompter answers questions from a queue and records them.
type scriptedPrompter struct {
	mu        sync.Mutex
	answers   []string
	questions []string
	active    int
	overlap   bool
}

func (p *scriptedPrompter) prompt(_ context.Context, question string) (string, error) {
	p.mu.Lock()
	p.active++
	if p.active > 1 {
		p.overlap = true
	}
	p.questions = append(p.questions, question)
	var answer string
	if len(p.answers) > 0 {
		answer, p.answers = p.answers[0], p.answers[1:]
	}
	p.mu.Unlock()

	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	return answer, nil
}

func TestConsole_Juror(t *testing.T) {
	console := NewConsole((&scriptedPrompter{}).prompt)

	_, err := console.Juror("")
	assert.Error(t, err)

	j, err := console.Juror("Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", j.Name())
}

func TestConsoleJuror_Vote(t *testing.T) {
	tests := []struct {
		name         string
		answer       string
		ballot       domain.Ballot
		want         int
		wantErr      error
		wantQuestion string
	}{
		{
			name:         "whole number",
			answer:       "7",
			ballot:       domain.Ballot{Player: "Léa", Criterion: "Humour", Attempt: 1},
			want:         7,
			wantQuestion: "Alice, your vote for Léa on Humour (0-10)",
		},
		{
			name:         "surrounding space",
			answer:       "  4 \n",
			ballot:       domain.Ballot{Player: "Léa", Criterion: "Humour", Description: "How funny", Attempt: 1},
			want:         4,
			wantQuestion: "Alice, your vote for Léa on Humour (0-10) [How funny]",
		},
		{
			name:         "out of range is left to the game",
			answer:       "42",
			ballot:       domain.Ballot{Player: "Léa", Criterion: "Humour", Attempt: 2},
			want:         42,
			wantQuestion: "Try again. Alice, your vote for Léa on Humour (0-10)",
		},
		{
			name:    "not a number",
			answer:  "seven",
			ballot:  domain.Ballot{Player: "Léa", Criterion: "Humour", Attempt: 1},
			wantErr: ports.ErrUnparsableVote,
		},
		{
			name:    "fraction",
			answer:  "6.5",
			ballot:  domain.Ballot{Player: "Léa", Criterion: "Humour", Attempt: 1},
			wantErr: ports.ErrUnparsableVote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedPrompter{answers: []string{tt.answer}}
			j, err := NewConsole(p.prompt).Juror("Alice")
			require.NoError(t, err)

			got, err := j.Vote(context.Background(), tt.ballot)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var je *ports.JurorError
				require.ErrorAs(t, err, &je)
				assert.Equal(t, "Alice", je.Juror)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{tt.wantQuestion}, p.questions)
		})
	}
}

func TestConsoleJuror_PromptError(t *testing.T) {
	cause := errors.New("interrupted")
	j, err := NewConsole(func(context.Context, string) (string, error) { return "", cause }).Juror("Bob")
	require.NoError(t, err)

	_, err = j.Vote(context.Background(), domain.Ballot{Player: "Léa", Criterion: "Humour", Attempt: 1})

	assert.ErrorIs(t, err, cause)
}

func TestConsoleJuror_CancelledContext(t *testing.T) {
	p := &scriptedPrompter{answers: []string{"5"}}
	j, err := NewConsole(p.prompt).Juror("Bob")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = j.Vote(ctx, domain.Ballot{Player: "Léa", Criterion: "Humour", Attempt: 1})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.questions, "nobody is asked after cancellation")
}

// TestConsole_SerializesPrompts verifies that jurors sharing a console never
// prompt at the same time.
func TestConsole_SerializesPrompts(t *testing.T) {
	p := &scriptedPrompter{answers: []string{"1", "2", "3", "4", "5", "6"}}
	console := NewConsole(p.prompt)

	var wg sync.WaitGroup
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		j, err := console.Juror(name)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = j.Vote(context.Background(), domain.Ballot{Player: "Léa", Criterion: "Humour", Attempt: 1})
		}()
	}
	wg.Wait()

	assert.Len(t, p.questions, 6)
	assert.False(t, p.overlap)
}
