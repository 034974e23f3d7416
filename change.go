package hotplug

import "sort"

// Reading is one observation of a connector taken from a controller.
type Reading struct {
	Key   ConnectorKey
	State State

	// Controller is the device path the reading came from.
	Controller string

	// Connector is a human readable name such as "HDMI-A-1". It is only
	// used for diagnostics and never takes part in identity.
	Connector string
}

// ChangeKind distinguishes first observations from transitions.
type ChangeKind int

const (
	// ChangeInitial marks the first observation of a connector. Initial
	// changes bypass debouncing.
	ChangeInitial ChangeKind = iota

	// ChangeTransition marks a reading that differs from the baseline.
	ChangeTransition
)

// String returns the string representation of the kind.
func (k ChangeKind) String() string {
	if k == ChangeInitial {
		return "initial"
	}
	return "transition"
}

// Change is a candidate or stable change for one connector.
type Change struct {
	Reading
	Kind ChangeKind

	// Previous is the state the transition moved away from. On candidates
	// it is the last observed baseline state. On stable changes it is the
	// state last reported for the key, which equals State when a connect
	// absorbed a pending disconnect. Meaningless for a first report.
	Previous State
}

func sortChanges(changes []Change) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Key.less(changes[j].Key)
	})
}
