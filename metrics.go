package hotplug

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key reconciler events.
type MetricsProvider interface {
	// OnPhaseChange is called when the reconciler moves between phases.
	OnPhaseChange(from, to Phase)

	// OnEventBatch is called for every batch read from the event source.
	OnEventBatch(size int)

	// OnCycle is called after every reconciliation cycle.
	OnCycle(duration time.Duration, candidates, reported int)

	// OnControllerFailure is called when a controller is skipped because
	// its query failed.
	OnControllerFailure(controller string)

	// OnTransition is called for every stable change handed to the notifier.
	OnTransition(c Change)

	// OnNotifyFailure is called when the notifier returns an error.
	OnNotifyFailure(c Change)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnPhaseChange(_, _ Phase)         {}
func (NoOpMetricsProvider) OnEventBatch(_ int)               {}
func (NoOpMetricsProvider) OnCycle(_ time.Duration, _, _ int) {}
func (NoOpMetricsProvider) OnControllerFailure(_ string)     {}
func (NoOpMetricsProvider) OnTransition(_ Change)            {}
func (NoOpMetricsProvider) OnNotifyFailure(_ Change)         {}
