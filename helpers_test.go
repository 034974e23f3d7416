package hotplug

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeController is an in-memory Controller for tests.
type fakeController struct {
	mu         sync.Mutex
	path       string
	connectors []Connector
	states     map[uint32]State
	listErr    error
	closed     bool
	closeErr   error
}

func newFakeController(path string, ids ...uint32) *fakeController {
	c := &fakeController{path: path, states: make(map[uint32]State)}
	for _, id := range ids {
		c.connectors = append(c.connectors, Connector{ID: id, Name: fmt.Sprintf("HDMI-A-%d", id)})
		c.states[id] = StateDisconnected
	}
	return c
}

func (c *fakeController) Path() string { return c.path }

func (c *fakeController) Connectors() ([]Connector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]Connector(nil), c.connectors...), nil
}

func (c *fakeController) ConnectorState(conn Connector) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[conn.ID]
	if !ok {
		return StateUnknown, errors.New("no such connector")
	}
	return s, nil
}

func (c *fakeController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeController) set(id uint32, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[id] = s
}

func (c *fakeController) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

func (c *fakeController) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// recorder collects every change handed to it.
type recorder struct {
	mu      sync.Mutex
	changes []Change
	err     error
}

func (r *recorder) Notify(_ context.Context, c Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return r.err
}

func (r *recorder) all() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

// take returns and clears the recorded changes.
func (r *recorder) take() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.changes
	r.changes = nil
	return out
}

// closingSource is a sync event source that tracks Close and can explain
// its closure.
type closingSource struct {
	ch     chan Event
	closed bool
	err    error
}

func newClosingSource() *closingSource {
	return &closingSource{ch: make(chan Event, 16)}
}

func (s *closingSource) Watch(_ context.Context) (<-chan Event, error) {
	return s.ch, nil
}

func (s *closingSource) Err() error { return s.err }

func (s *closingSource) Close() error {
	s.closed = true
	return nil
}

func reading(path string, id uint32, s State) Reading {
	return Reading{Key: NewConnectorKey(path, id), State: s, Controller: path}
}
