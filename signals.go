package hotplug

import (
	"context"

	"github.com/zoobzio/capitan"
)

// Reconciler lifecycle signals.
var (
	// ReconcilerStarted is emitted when a Reconciler begins monitoring.
	ReconcilerStarted = capitan.NewSignal(
		"hotplug.reconciler.started",
		"Reconciler monitoring started",
	)

	// ReconcilerStopped is emitted when a Reconciler stops monitoring.
	ReconcilerStopped = capitan.NewSignal(
		"hotplug.reconciler.stopped",
		"Reconciler monitoring stopped",
	)

	// PhaseChanged is emitted when a Reconciler moves between idle and
	// reconciling.
	PhaseChanged = capitan.NewSignal(
		"hotplug.reconciler.phase.changed",
		"Reconciler phase transition",
	)

	// SourceFailed is emitted when the event source fails and the
	// Reconciler terminates.
	SourceFailed = capitan.NewSignal(
		"hotplug.source.failed",
		"Event source failed",
	)
)

// Cycle signals.
var (
	// EventsReceived is emitted for every batch read from the event source.
	EventsReceived = capitan.NewSignal(
		"hotplug.events.received",
		"Hardware event batch received",
	)

	// CycleCompleted is emitted after every reconciliation cycle, including
	// cycles that produced no changes.
	CycleCompleted = capitan.NewSignal(
		"hotplug.cycle.completed",
		"Reconciliation cycle completed",
	)

	// ControllerQueryFailed is emitted when a controller could not be
	// queried. The controller is skipped for the current cycle.
	ControllerQueryFailed = capitan.NewSignal(
		"hotplug.controller.query.failed",
		"Controller query failed",
	)
)

// Transition signals.
var (
	// TransitionPending is emitted when a candidate enters the debounce
	// filter and starts its quiet period.
	TransitionPending = capitan.NewSignal(
		"hotplug.transition.pending",
		"Candidate waiting for quiet period",
	)

	// TransitionAbsorbed is emitted when a pending candidate is dropped
	// without being reported.
	TransitionAbsorbed = capitan.NewSignal(
		"hotplug.transition.absorbed",
		"Pending candidate absorbed",
	)

	// TransitionReported is emitted for every stable change handed to the
	// notifier.
	TransitionReported = capitan.NewSignal(
		"hotplug.transition.reported",
		"Stable transition reported",
	)

	// TransitionDiscarded is emitted for pending candidates dropped during
	// shutdown.
	TransitionDiscarded = capitan.NewSignal(
		"hotplug.transition.discarded",
		"Pending candidate discarded on shutdown",
	)

	// NotifyFailed is emitted when the notifier returns an error.
	NotifyFailed = capitan.NewSignal(
		"hotplug.notify.failed",
		"Notifier failed",
	)
)

func changeFields(c Change) []capitan.Field {
	return []capitan.Field{
		KeyController.Field(c.Controller),
		KeyConnector.Field(c.Connector),
		KeyConnectorID.Field(int(c.Key.Connector)),
		KeyState.Field(c.State.String()),
		KeyKind.Field(c.Kind.String()),
	}
}

func emitChange(ctx context.Context, signal capitan.Signal, c Change, extra ...capitan.Field) {
	capitan.Emit(ctx, signal, append(changeFields(c), extra...)...)
}

func emitControllerFailed(ctx context.Context, path string, err error) {
	capitan.Emit(ctx, ControllerQueryFailed,
		KeyController.Field(path),
		KeyError.Field(err.Error()),
	)
}
