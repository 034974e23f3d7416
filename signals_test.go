package hotplug

import "testing"

func TestSignalNames(t *testing.T) {
	tests := []struct {
		name string
		got  string
	}{
		{"hotplug.reconciler.started", ReconcilerStarted.Name()},
		{"hotplug.reconciler.stopped", ReconcilerStopped.Name()},
		{"hotplug.reconciler.phase.changed", PhaseChanged.Name()},
		{"hotplug.source.failed", SourceFailed.Name()},
		{"hotplug.events.received", EventsReceived.Name()},
		{"hotplug.cycle.completed", CycleCompleted.Name()},
		{"hotplug.controller.query.failed", ControllerQueryFailed.Name()},
		{"hotplug.transition.pending", TransitionPending.Name()},
		{"hotplug.transition.absorbed", TransitionAbsorbed.Name()},
		{"hotplug.transition.reported", TransitionReported.Name()},
		{"hotplug.transition.discarded", TransitionDiscarded.Name()},
		{"hotplug.notify.failed", NotifyFailed.Name()},
	}

	for _, tt := range tests {
		if tt.got != tt.name {
			t.Errorf("expected name %q, got %q", tt.name, tt.got)
		}
	}
}

func TestChangeFields(t *testing.T) {
	c := Change{
		Reading: Reading{
			Key:        NewConnectorKey("/dev/dri/card0", 77),
			State:      StateConnected,
			Controller: "/dev/dri/card0",
			Connector:  "DP-1",
		},
		Kind: ChangeTransition,
	}

	fields := changeFields(c)
	want := []string{"controller", "connector", "connector_id", "state", "kind"}
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(fields))
	}
	for i, name := range want {
		if fields[i].Key().Name() != name {
			t.Errorf("field %d: expected key %q, got %q", i, name, fields[i].Key().Name())
		}
	}
}
