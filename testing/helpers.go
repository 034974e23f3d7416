// Package testing provides test utilities and helpers for hotplug
// reconciler testing.
package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/zoobzio/hotplug"
)

// ErrNoSuchConnector is returned by FakeController for unknown connector ids.
var ErrNoSuchConnector = errors.New("no such connector")

// FakeController is an in-memory hotplug.Controller. Every connector starts
// disconnected. It is safe for concurrent use.
type FakeController struct {
	mu         sync.Mutex
	path       string
	connectors []hotplug.Connector
	states     map[uint32]hotplug.State
	err        error
	closed     bool
}

// NewFakeController creates a controller at path with connectors named
// "HDMI-A-<id>".
func NewFakeController(path string, ids ...uint32) *FakeController {
	c := &FakeController{path: path, states: make(map[uint32]hotplug.State)}
	for _, id := range ids {
		c.AddConnector(id, fmt.Sprintf("HDMI-A-%d", id), hotplug.StateDisconnected)
	}
	return c
}

// Path implements hotplug.Controller.
func (c *FakeController) Path() string { return c.path }

// Connectors implements hotplug.Controller.
func (c *FakeController) Connectors() ([]hotplug.Connector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]hotplug.Connector(nil), c.connectors...), nil
}

// ConnectorState implements hotplug.Controller.
func (c *FakeController) ConnectorState(conn hotplug.Connector) (hotplug.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[conn.ID]
	if !ok {
		return hotplug.StateUnknown, ErrNoSuchConnector
	}
	return s, nil
}

// Close implements hotplug.Controller.
func (c *FakeController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// AddConnector adds a connector with the given name and state.
func (c *FakeController) AddConnector(id uint32, name string, s hotplug.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectors = append(c.connectors, hotplug.Connector{ID: id, Name: name})
	c.states[id] = s
}

// Set changes the live state of a connector.
func (c *FakeController) Set(id uint32, s hotplug.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[id] = s
}

// Fail makes every query fail with err until Fail(nil) is called.
func (c *FakeController) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Closed reports whether Close has been called.
func (c *FakeController) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// RecordingNotifier records every change it receives. It is safe for
// concurrent use.
type RecordingNotifier struct {
	mu      sync.Mutex
	changes []hotplug.Change
	err     error
}

// Notify implements hotplug.Notifier.
func (n *RecordingNotifier) Notify(_ context.Context, c hotplug.Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return n.err
}

// FailWith makes subsequent notifications return err after recording.
func (n *RecordingNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Changes returns a copy of the recorded changes.
func (n *RecordingNotifier) Changes() []hotplug.Change {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]hotplug.Change(nil), n.changes...)
}

// Take returns the recorded changes and clears them.
func (n *RecordingNotifier) Take() []hotplug.Change {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.changes
	n.changes = nil
	return out
}

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// RequirePhase fails the test immediately if the reconciler is not in the
// expected phase.
func RequirePhase(t *testing.T, r *hotplug.Reconciler, expected hotplug.Phase) {
	t.Helper()
	if got := r.Phase(); got != expected {
		t.Fatalf("expected phase %s, got %s", expected, got)
	}
}

// RequireStates fails the test unless changes carry exactly the expected
// states in order.
func RequireStates(t *testing.T, changes []hotplug.Change, expected ...hotplug.State) {
	t.Helper()
	if len(changes) != len(expected) {
		t.Fatalf("expected %d changes, got %d: %+v", len(expected), len(changes), changes)
	}
	for i, s := range expected {
		if changes[i].State != s {
			t.Fatalf("change %d: expected %s, got %s", i, s, changes[i].State)
		}
	}
}

// Harness bundles a sync-mode reconciler with its fake clock, event channel
// and notifier.
type Harness struct {
	Reconciler *hotplug.Reconciler
	Clock      *clockz.FakeClock
	Events     chan hotplug.Event
	Notifier   *RecordingNotifier
}

// NewHarness creates a sync-mode reconciler over the given controllers.
// Configure it further through h.Reconciler before calling Start.
func NewHarness(t *testing.T, controllers ...hotplug.Controller) *Harness {
	t.Helper()
	return NewHarnessNotifying(t, nil, controllers...)
}

// NewHarnessNotifying is NewHarness with a second notifier called after the
// recording one.
func NewHarnessNotifying(t *testing.T, extra hotplug.Notifier, controllers ...hotplug.Controller) *Harness {
	t.Helper()
	h := &Harness{
		Clock:    clockz.NewFakeClock(),
		Events:   make(chan hotplug.Event, 64),
		Notifier: &RecordingNotifier{},
	}
	var notifier hotplug.Notifier = h.Notifier
	if extra != nil {
		notifier = hotplug.Fanout(h.Notifier, extra)
	}
	h.Reconciler = hotplug.New(
		hotplug.NewSyncChannelSource(h.Events),
		hotplug.NewControllerSet(controllers...),
		notifier,
	).Clock(h.Clock).SyncMode()
	return h
}

// Change pushes a change event and runs one cycle.
func (h *Harness) Change(ctx context.Context) bool {
	h.Events <- hotplug.Event{Kind: hotplug.EventChange, Subsystem: "drm"}
	return h.Reconciler.Process(ctx)
}

// Tick advances the clock by d and runs one cycle without events.
func (h *Harness) Tick(ctx context.Context, d time.Duration) bool {
	h.Clock.Advance(d)
	return h.Reconciler.Process(ctx)
}
