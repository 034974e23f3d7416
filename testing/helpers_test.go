package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/hotplug"
)

func TestFakeController(t *testing.T) {
	c := NewFakeController("/dev/dri/card0", 1, 2)
	c.Set(2, hotplug.StateConnected)

	readings, err := hotplug.Snapshot(c)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(readings) != 2 || readings[1].State != hotplug.StateConnected {
		t.Errorf("unexpected readings: %+v", readings)
	}

	c.Fail(errors.New("ENODEV"))
	if _, err := hotplug.Snapshot(c); err == nil {
		t.Error("expected failing controller")
	}

	if _, err := c.ConnectorState(hotplug.Connector{ID: 9}); !errors.Is(err, ErrNoSuchConnector) {
		t.Errorf("expected ErrNoSuchConnector, got %v", err)
	}

	c.Close()
	if !c.Closed() {
		t.Error("expected closed")
	}
}

func TestRecordingNotifier(t *testing.T) {
	n := &RecordingNotifier{}
	n.Notify(context.Background(), hotplug.Change{})
	if len(n.Changes()) != 1 {
		t.Fatalf("expected 1 change, got %d", len(n.Changes()))
	}
	if len(n.Take()) != 1 || len(n.Changes()) != 0 {
		t.Error("expected Take to clear recorded changes")
	}

	cause := errors.New("sink down")
	n.FailWith(cause)
	if err := n.Notify(context.Background(), hotplug.Change{}); !errors.Is(err, cause) {
		t.Errorf("expected configured error, got %v", err)
	}
}

func TestWaitFor(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		result := WaitFor(t, 100*time.Millisecond, func() bool {
			return true
		})
		if !result {
			t.Error("expected WaitFor to return true")
		}
	})

	t.Run("condition never met", func(t *testing.T) {
		result := WaitFor(t, 50*time.Millisecond, func() bool {
			return false
		})
		if result {
			t.Error("expected WaitFor to return false")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		start := time.Now()
		result := WaitFor(t, time.Second, func() bool {
			return time.Since(start) > 30*time.Millisecond
		})
		if !result {
			t.Error("expected WaitFor to return true")
		}
	})
}

func TestHarness_Scenario(t *testing.T) {
	ctx := context.Background()
	card := NewFakeController("/dev/dri/card0", 1)
	h := NewHarness(t, card)
	h.Reconciler.QuietPeriod(100 * time.Millisecond)

	if err := h.Reconciler.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	RequireStates(t, h.Notifier.Take(), hotplug.StateDisconnected)
	RequirePhase(t, h.Reconciler, hotplug.PhaseIdle)

	h.Clock.Advance(50 * time.Millisecond)
	card.Set(1, hotplug.StateConnected)
	h.Change(ctx)
	RequireStates(t, h.Notifier.Take(), hotplug.StateConnected)

	h.Clock.Advance(150 * time.Millisecond)
	card.Set(1, hotplug.StateDisconnected)
	h.Change(ctx)
	RequireStates(t, h.Notifier.Take())

	h.Tick(ctx, 50*time.Millisecond)
	RequireStates(t, h.Notifier.Take())

	h.Tick(ctx, 60*time.Millisecond)
	RequireStates(t, h.Notifier.Take(), hotplug.StateDisconnected)
}
