package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		subject string
		err     error
		wantMsg string
	}{
		{
			name:    "with subject",
			op:      "Judge",
			subject: "Théo",
			err:     ErrNotFound,
			wantMsg: "game error: operation=Judge, subject=Théo, err=not found",
		},
		{
			name:    "without subject",
			op:      "Set",
			err:     ErrInvalidPhase,
			wantMsg: "game error: operation=Set, err=invalid phase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewGameError(tt.op, tt.subject, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error(), "Error message mismatch")
			assert.Equal(t, tt.op, err.Op, "Operation mismatch")
			assert.True(t, errors.Is(err, tt.err), "Should unwrap to underlying error")
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("GameConfig")
		err.AddError("missing players")

		assert.Equal(t, "validation error for GameConfig: missing players", err.Error())
		assert.True(t, err.HasErrors())
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("GameConfig")
		err.AddError("missing players")
		err.AddError("missing jury")

		assert.Contains(t, err.Error(), "validation errors for GameConfig")
		assert.Len(t, err.Errors, 2)
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("GameConfig")

		assert.False(t, err.HasErrors())
		assert.Empty(t, err.Errors)
	})
}

func TestCommonDomainErrors(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{ErrInvalidPhase, "invalid phase"},
		{ErrNotFound, "not found"},
		{ErrInvalidVote, "invalid vote"},
		{ErrAlreadySummarized, "cell already summarized"},
		{ErrEmptyJury, "empty jury"},
		{ErrNoCriteria, "no criteria"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestPhase(t *testing.T) {
	assert.Equal(t, "setup", PhaseSetup.String())
	assert.Equal(t, "active", PhaseActive.String())
	assert.Equal(t, "unknown", Phase(9).String())

	assert.True(t, PhaseSetup.CanTransitionTo(PhaseActive))
	assert.False(t, PhaseActive.CanTransitionTo(PhaseSetup))
	assert.False(t, PhaseActive.CanTransitionTo(PhaseActive))
	assert.False(t, PhaseSetup.CanTransitionTo(PhaseSetup))
}
