package domain

import (
	"errors"
	"fmt"
)

// Common domain errors returned by Game operations.
var (
	// ErrInvalidPhase indicates that an operation was invoked in the wrong
	// lifecycle phase: roster mutation after Set, or scoring before it.
	ErrInvalidPhase = errors.New("invalid phase")

	// ErrNotFound indicates a reference to a player, juror, or criterion that
	// is not part of the roster.
	ErrNotFound = errors.New("not found")

	// ErrInvalidVote indicates a vote outside the [MinVote, MaxVote] range.
	ErrInvalidVote = errors.New("invalid vote")

	// ErrAlreadySummarized indicates that a score cell has already been
	// averaged and can no longer accept votes or be averaged again.
	ErrAlreadySummarized = errors.New("cell already summarized")

	// ErrEmptyJury indicates that a turn cannot be averaged because the jury
	// roster is empty.
	ErrEmptyJury = errors.New("empty jury")

	// ErrNoCriteria indicates that final scores cannot be computed because
	// no criterion was ever registered.
	ErrNoCriteria = errors.New("no criteria")
)

// GameError represents an error that occurred during a Game operation.
// It records which operation failed and the roster entry involved.
type GameError struct {
	// Op is the Game operation that failed, e.g. "Judge".
	Op string

	// Subject names the roster entry or cell involved. It may be empty.
	Subject string

	// Err is the underlying sentinel error.
	Err error
}

// Error implements the error interface for GameError.
func (e *GameError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("game error: operation=%s, err=%v", e.Op, e.Err)
	}
	return fmt.Sprintf("game error: operation=%s, subject=%s, err=%v", e.Op, e.Subject, e.Err)
}

// Unwrap returns the underlying error so callers can use errors.Is.
func (e *GameError) Unwrap() error { return e.Err }

// NewGameError creates a new GameError with the given details.
func NewGameError(op, subject string, err error) *GameError {
	return &GameError{
		Op:      op,
		Subject: subject,
		Err:     err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
