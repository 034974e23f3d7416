//go:build !linux

package drm

import (
	"errors"

	"github.com/zoobzio/hotplug"
)

// ErrUnsupported is returned by mode queries outside Linux.
var ErrUnsupported = errors.New("drm: mode-setting ioctls require linux")

// Connectors always fails outside Linux.
func (c *Card) Connectors() ([]hotplug.Connector, error) {
	return nil, ErrUnsupported
}

// ConnectorState always fails outside Linux.
func (c *Card) ConnectorState(hotplug.Connector) (hotplug.State, error) {
	return hotplug.StateUnknown, ErrUnsupported
}
