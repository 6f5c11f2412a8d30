package pipeline

// State tracks progress through the linear stage sequence. There is no
// branching back: a run only ever advances, or drops into StateFailed.
type State int

const (
	StateInit State = iota
	StateEnvironmentResolved
	StateToolchainReady
	StateDependenciesInstalled
	StateAcceleratorInstalled
	StateSourceDistPackaged
	StateWheelPackaged
	StatePublished
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:                  "Init",
	StateEnvironmentResolved:   "EnvironmentResolved",
	StateToolchainReady:        "ToolchainReady",
	StateDependenciesInstalled: "DependenciesInstalled",
	StateAcceleratorInstalled:  "AcceleratorInstalled",
	StateSourceDistPackaged:    "SourceDistPackaged",
	StateWheelPackaged:         "WheelPackaged",
	StatePublished:             "Published",
	StateDone:                  "Done",
	StateFailed:                "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsTerminal reports whether the state ends the invocation.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanAdvanceTo reports whether moving from s to next is a legal transition.
// Forward moves are allowed (optional stages advance past their state when
// skipped, and sibling sub-stages share a state); StateFailed is reachable
// from any non-terminal state. There is no moving backward.
func (s State) CanAdvanceTo(next State) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return next >= s && next <= StateDone
}
