package hotplug

import (
	"context"
	"errors"
)

// Connector is a handle to one output on a controller, as enumerated by the
// controller itself.
type Connector struct {
	ID   uint32
	Name string
}

// Controller is the mode-setting capability of one display controller.
// Implementations are selected at startup (see pkg/drm and pkg/sysfs) and
// are exclusively owned by a ControllerSet.
type Controller interface {
	// Path returns the stable identity of the controller, normally its
	// device path.
	Path() string

	// Connectors lists the connectors the controller currently enumerates.
	Connectors() ([]Connector, error)

	// ConnectorState queries the live state of one connector.
	ConnectorState(c Connector) (State, error)

	// Close releases the controller handle.
	Close() error
}

// Snapshot queries a controller for the live state of all its connectors.
// Failures are returned as *DeviceQueryError.
func Snapshot(c Controller) ([]Reading, error) {
	path := c.Path()

	connectors, err := c.Connectors()
	if err != nil {
		return nil, &DeviceQueryError{Controller: path, Op: "list connectors", Err: err}
	}

	readings := make([]Reading, 0, len(connectors))
	for _, conn := range connectors {
		state, err := c.ConnectorState(conn)
		if err != nil {
			return nil, &DeviceQueryError{Controller: path, Op: "connector " + conn.Name, Err: err}
		}
		readings = append(readings, Reading{
			Key:        NewConnectorKey(path, conn.ID),
			State:      state,
			Controller: path,
			Connector:  conn.Name,
		})
	}
	return readings, nil
}

// ControllerSet aggregates the connectors of every known controller into a
// single reading vector.
type ControllerSet struct {
	controllers []Controller
}

// NewControllerSet takes ownership of the given controllers.
func NewControllerSet(controllers ...Controller) *ControllerSet {
	return &ControllerSet{controllers: controllers}
}

// Len returns the number of controllers in the set.
func (s *ControllerSet) Len() int {
	return len(s.controllers)
}

// Paths returns the controller paths in the order they were added.
func (s *ControllerSet) Paths() []string {
	paths := make([]string, len(s.controllers))
	for i, c := range s.controllers {
		paths[i] = c.Path()
	}
	return paths
}

// SnapshotAll flattens the snapshots of every controller. A controller that
// fails is skipped for this call and reported in the returned errors; the
// remaining controllers are still queried.
func (s *ControllerSet) SnapshotAll(ctx context.Context) ([]Reading, []error) {
	var (
		readings []Reading
		errs     []error
	)
	for _, c := range s.controllers {
		r, err := Snapshot(c)
		if err != nil {
			emitControllerFailed(ctx, c.Path(), err)
			errs = append(errs, err)
			continue
		}
		readings = append(readings, r...)
	}
	return readings, errs
}

// Close closes every controller handle and joins their errors.
func (s *ControllerSet) Close() error {
	var errs []error
	for _, c := range s.controllers {
		if err := c.Close(); err != nil {
			errs = append(errs, &DeviceQueryError{Controller: c.Path(), Op: "close", Err: err})
		}
	}
	return errors.Join(errs...)
}
