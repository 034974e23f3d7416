package hotplug

import "github.com/zoobzio/capitan"

// Field keys for Reconciler events.
var (
	// KeyController is the device path of a controller.
	KeyController = capitan.NewStringKey("controller")

	// KeyConnector is the human readable connector name.
	KeyConnector = capitan.NewStringKey("connector")

	// KeyConnectorID is the connector id assigned by the controller.
	KeyConnectorID = capitan.NewIntKey("connector_id")

	// KeyState is a connector state.
	KeyState = capitan.NewStringKey("state")

	// KeyKind is the change kind ("initial" or "transition").
	KeyKind = capitan.NewStringKey("kind")

	// KeyReason explains why a pending candidate was absorbed.
	KeyReason = capitan.NewStringKey("reason")

	// KeyOldPhase is the phase before a transition.
	KeyOldPhase = capitan.NewStringKey("old_phase")

	// KeyNewPhase is the phase after a transition.
	KeyNewPhase = capitan.NewStringKey("new_phase")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyQuietPeriod is the configured quiet period.
	KeyQuietPeriod = capitan.NewDurationKey("quiet_period")

	// KeyPollInterval is the configured poll interval.
	KeyPollInterval = capitan.NewDurationKey("poll_interval")

	// KeyElapsed is how long a cycle or pending candidate took.
	KeyElapsed = capitan.NewDurationKey("elapsed")

	// KeyEvents is the number of events in a batch.
	KeyEvents = capitan.NewIntKey("events")

	// KeyCandidates is the number of candidates produced by a diff.
	KeyCandidates = capitan.NewIntKey("candidates")

	// KeyReported is the number of stable changes reported by a cycle.
	KeyReported = capitan.NewIntKey("reported")

	// KeyPending is the number of candidates waiting in the debounce filter.
	KeyPending = capitan.NewIntKey("pending")

	// KeyControllers is the number of controllers being monitored.
	KeyControllers = capitan.NewIntKey("controllers")
)
