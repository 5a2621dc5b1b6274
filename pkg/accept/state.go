package accept

// State is the position of a query in the acceptance protocol.
type State int

// Protocol states.
const (
	// StateUnrecognized is the initial state and the final state of text
	// that is not pipeline syntax.
	StateUnrecognized State = iota
	StateParsed
	StatePlanned
	StateBound
	StateExecuting
	StateDone
	StateRejected
)

var stateNames = [...]string{
	StateUnrecognized: "Unrecognized",
	StateParsed:       "Parsed",
	StatePlanned:      "Planned",
	StateBound:        "Bound",
	StateExecuting:    "Executing",
	StateDone:         "Done",
	StateRejected:     "Rejected",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

var transitions = map[State][]State{
	StateUnrecognized: {StateParsed, StateRejected},
	StateParsed:       {StatePlanned, StateRejected},
	StatePlanned:      {StateBound, StateRejected},
	StateBound:        {StateExecuting},
	StateExecuting:    {StateDone},
}

// CanTransition reports whether the protocol allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
