package domain

// Phase is the per-session game phase.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseIPO       Phase = "ipo"
	PhaseNewspaper Phase = "newspaper"
	PhaseTrading   Phase = "trading"
)

// validTransitions defines the allowed phase progression. The ipo→newspaper
// transition is driven by the controller once clearing has run for every
// company; newspaper→trading is an external trigger.
var validTransitions = map[Phase][]Phase{
	PhaseLobby:     {PhaseIPO},
	PhaseIPO:       {PhaseNewspaper},
	PhaseNewspaper: {PhaseTrading},
	PhaseTrading:   {},
}

// CanTransition reports whether moving from one phase to another is allowed.
func CanTransition(from, to Phase) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
