package domain

// Phase is the lifecycle phase of a Game.
type Phase int

const (
	// PhaseSetup allows roster mutation. No score matrix exists yet.
	PhaseSetup Phase = iota

	// PhaseActive freezes the rosters and enables voting and aggregation.
	// It is terminal.
	PhaseActive
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether moving from p to target is allowed.
// The only legal transition is Setup to Active.
func (p Phase) CanTransitionTo(target Phase) bool {
	return p == PhaseSetup && target == PhaseActive
}
