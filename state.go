package hotplug

// State is the connection state reported for a connector.
type State int32

const (
	// StateUnknown is a valid but inconclusive reading. It is never treated
	// as equivalent to connected or disconnected.
	StateUnknown State = iota

	// StateConnected indicates a sink is attached to the connector.
	StateConnected

	// StateDisconnected indicates nothing is attached to the connector.
	StateDisconnected
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ParseState maps the sysfs/udev spelling of a connector status to a State.
// Anything unrecognised is StateUnknown.
func ParseState(s string) State {
	switch s {
	case "connected":
		return StateConnected
	case "disconnected":
		return StateDisconnected
	default:
		return StateUnknown
	}
}

// Phase represents where the Reconciler is in its cycle.
type Phase int32

const (
	// PhaseIdle indicates the Reconciler is waiting for hardware events or
	// the next poll tick.
	PhaseIdle Phase = iota

	// PhaseReconciling indicates a snapshot, diff, debounce and notify cycle
	// is in progress.
	PhaseReconciling
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReconciling:
		return "reconciling"
	default:
		return "unknown"
	}
}
