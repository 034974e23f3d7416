package hotplug

import (
	"context"
	"fmt"
	"time"
)

// DefaultQuietPeriod is the default time a candidate must persist before it
// is reported.
const DefaultQuietPeriod = 200 * time.Millisecond

// PromotionPolicy decides what happens when a pending candidate's quiet
// period has elapsed.
type PromotionPolicy int

const (
	// PromoteRevalidate checks the live state before promoting. A candidate
	// that no longer matches the live reading is dropped. This closes the
	// race where a connector disconnects, reconnects and disconnects again
	// inside one quiet period.
	PromoteRevalidate PromotionPolicy = iota

	// PromoteOriginal promotes the captured candidate unconditionally.
	PromoteOriginal
)

// String returns the string representation of the policy.
func (p PromotionPolicy) String() string {
	switch p {
	case PromoteRevalidate:
		return "revalidate"
	case PromoteOriginal:
		return "original"
	default:
		return "unknown"
	}
}

// ParsePromotionPolicy parses "revalidate" or "original". An empty string
// selects PromoteRevalidate.
func ParsePromotionPolicy(s string) (PromotionPolicy, error) {
	switch s {
	case "", "revalidate":
		return PromoteRevalidate, nil
	case "original":
		return PromoteOriginal, nil
	default:
		return PromoteRevalidate, fmt.Errorf("unknown promotion policy %q", s)
	}
}

// LiveStatus says how much the last snapshot knows about a key.
type LiveStatus int

const (
	// LiveMissing means the key was not part of the last snapshot.
	LiveMissing LiveStatus = iota

	// LiveFresh means the last snapshot read the key.
	LiveFresh

	// LiveHeld means the key's controller failed its last query and the
	// state was carried over from an earlier snapshot.
	LiveHeld
)

// LiveState looks up the most recent live reading for a key.
type LiveState func(ConnectorKey) (State, LiveStatus)

type pendingEntry struct {
	change Change
	since  time.Time
}

// DebounceFilter holds candidates until they have been stable for a quiet
// period. Initial observations and connects pass straight through;
// everything else waits. It is not safe for concurrent use.
type DebounceFilter struct {
	quiet     time.Duration
	overrides map[ConnectorKey]time.Duration
	policy    PromotionPolicy
	pending   map[ConnectorKey]pendingEntry
	reported  map[ConnectorKey]State
}

// NewDebounceFilter creates a filter with the given quiet period.
func NewDebounceFilter(quiet time.Duration) *DebounceFilter {
	return &DebounceFilter{
		quiet:     quiet,
		overrides: make(map[ConnectorKey]time.Duration),
		pending:   make(map[ConnectorKey]pendingEntry),
		reported:  make(map[ConnectorKey]State),
	}
}

// Override sets a quiet period for a single connector.
func (f *DebounceFilter) Override(key ConnectorKey, d time.Duration) *DebounceFilter {
	f.overrides[key] = d
	return f
}

// Policy sets the promotion policy.
func (f *DebounceFilter) Policy(p PromotionPolicy) *DebounceFilter {
	f.policy = p
	return f
}

// QuietPeriodFor returns the quiet period that applies to a key.
func (f *DebounceFilter) QuietPeriodFor(key ConnectorKey) time.Duration {
	if d, ok := f.overrides[key]; ok {
		return d
	}
	return f.quiet
}

// Pending returns the number of candidates waiting for their quiet period.
func (f *DebounceFilter) Pending() int {
	return len(f.pending)
}

// Due reports whether any pending candidate has completed its quiet period.
func (f *DebounceFilter) Due(now time.Time) bool {
	for k, e := range f.pending {
		if now.Sub(e.since) >= f.QuietPeriodFor(k) {
			return true
		}
	}
	return false
}

// Admit feeds one cycle's candidates through the filter and returns the
// changes that are stable as of now: immediate reports first, then
// promotions in key order.
//
// live supplies the current reading for revalidation and may be nil, in
// which case candidates are promoted as captured. Under PromoteRevalidate a
// due candidate whose reading is LiveHeld stays pending, and one whose key
// is LiveMissing is promoted as captured.
func (f *DebounceFilter) Admit(ctx context.Context, candidates []Change, now time.Time, live LiveState) []Change {
	var stable []Change

	for _, c := range candidates {
		if c.Kind == ChangeInitial || c.State == StateConnected {
			f.absorb(ctx, c.Key, now, "superseded")
			stable = append(stable, f.report(c))
			continue
		}

		f.pending[c.Key] = pendingEntry{change: c, since: now}
		emitChange(ctx, TransitionPending, c, KeyQuietPeriod.Field(f.QuietPeriodFor(c.Key)))
	}

	return append(stable, f.sweep(ctx, now, live)...)
}

// sweep promotes every pending candidate whose quiet period has elapsed.
func (f *DebounceFilter) sweep(ctx context.Context, now time.Time, live LiveState) []Change {
	var promoted []Change
	for k, e := range f.pending {
		if now.Sub(e.since) < f.QuietPeriodFor(k) {
			continue
		}

		if f.policy == PromoteRevalidate && live != nil {
			s, status := live(k)
			if status == LiveHeld {
				// unverified, retried on the next refresh
				continue
			}
			if status == LiveFresh && s != e.change.State {
				f.absorb(ctx, k, now, "stale")
				continue
			}
		}

		delete(f.pending, k)
		promoted = append(promoted, f.report(e.change))
	}
	sortChanges(promoted)
	return promoted
}

// report records c as the state the consumer last saw for its key and
// sets Previous to the state reported before it.
func (f *DebounceFilter) report(c Change) Change {
	if prev, ok := f.reported[c.Key]; ok {
		c.Previous = prev
	}
	f.reported[c.Key] = c.State
	return c
}

// absorb drops the pending entry for key, if any.
func (f *DebounceFilter) absorb(ctx context.Context, key ConnectorKey, now time.Time, reason string) {
	e, ok := f.pending[key]
	if !ok {
		return
	}
	delete(f.pending, key)
	emitChange(ctx, TransitionAbsorbed, e.change,
		KeyReason.Field(reason),
		KeyElapsed.Field(now.Sub(e.since)),
	)
}

// Drain removes and returns every pending candidate without reporting it.
func (f *DebounceFilter) Drain() []Change {
	drained := make([]Change, 0, len(f.pending))
	for k, e := range f.pending {
		drained = append(drained, e.change)
		delete(f.pending, k)
	}
	sortChanges(drained)
	return drained
}
