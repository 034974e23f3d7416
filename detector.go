package hotplug

// ChangeDetector diffs readings against the last baseline and produces
// candidate changes. It is not safe for concurrent use.
type ChangeDetector struct {
	baseline       map[ConnectorKey]State
	held           map[ConnectorKey]struct{}
	retainVanished bool
}

// NewChangeDetector creates a detector with an empty baseline.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{baseline: make(map[ConnectorKey]State)}
}

// RetainVanished controls whether connectors missing from a snapshot keep
// their baseline entry. By default the baseline is replaced wholesale and a
// returning controller's connectors are reported as initial again.
func (d *ChangeDetector) RetainVanished(retain bool) *ChangeDetector {
	d.retainVanished = retain
	return d
}

// Diff compares readings against the baseline and returns the candidates:
// unseen keys as initial changes, differing keys as transitions. The
// readings then become the new baseline.
//
// Controllers listed in unreachable failed their query this cycle. Their
// baseline entries are held over unchanged and reported as LiveHeld until a
// later snapshot reads them again, so a controller error neither loses
// nor re-announces its connectors.
func (d *ChangeDetector) Diff(readings []Reading, unreachable ...string) []Change {
	var candidates []Change
	next := make(map[ConnectorKey]State, len(readings))
	held := make(map[ConnectorKey]struct{})

	for _, r := range readings {
		next[r.Key] = r.State

		prev, ok := d.baseline[r.Key]
		switch {
		case !ok:
			candidates = append(candidates, Change{Reading: r, Kind: ChangeInitial})
		case prev != r.State:
			candidates = append(candidates, Change{Reading: r, Kind: ChangeTransition, Previous: prev})
		}
	}

	if len(unreachable) > 0 {
		failed := make(map[uint64]struct{}, len(unreachable))
		for _, path := range unreachable {
			failed[NewConnectorKey(path, 0).Controller] = struct{}{}
		}
		for k, s := range d.baseline {
			if _, ok := failed[k.Controller]; !ok {
				continue
			}
			if _, seen := next[k]; !seen {
				next[k] = s
				held[k] = struct{}{}
			}
		}
	}

	if d.retainVanished {
		for k, s := range d.baseline {
			if _, seen := next[k]; !seen {
				next[k] = s
			}
		}
	}
	d.baseline = next
	d.held = held

	return candidates
}

// State returns the baseline state for a key.
func (d *ChangeDetector) State(key ConnectorKey) (State, bool) {
	s, ok := d.baseline[key]
	return s, ok
}

// Live returns the baseline state for a key and whether the last snapshot
// actually read it. It satisfies LiveState.
func (d *ChangeDetector) Live(key ConnectorKey) (State, LiveStatus) {
	s, ok := d.baseline[key]
	switch {
	case !ok:
		return StateUnknown, LiveMissing
	case d.isHeld(key):
		return s, LiveHeld
	default:
		return s, LiveFresh
	}
}

func (d *ChangeDetector) isHeld(key ConnectorKey) bool {
	_, ok := d.held[key]
	return ok
}

// Len returns the number of connectors in the baseline.
func (d *ChangeDetector) Len() int {
	return len(d.baseline)
}

// Snapshot returns a copy of the baseline.
func (d *ChangeDetector) Snapshot() map[ConnectorKey]State {
	out := make(map[ConnectorKey]State, len(d.baseline))
	for k, s := range d.baseline {
		out[k] = s
	}
	return out
}
