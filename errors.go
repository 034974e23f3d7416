package hotplug

import (
	"errors"
	"fmt"
)

// ErrSourceClosed is reported when an event source closes its channel
// without explaining why.
var ErrSourceClosed = errors.New("event source closed")

// DeviceQueryError reports a failed query against a single controller. It is
// recoverable: the controller is skipped for the current cycle and queried
// again on the next one.
type DeviceQueryError struct {
	Controller string
	Op         string
	Err        error
}

func (e *DeviceQueryError) Error() string {
	return fmt.Sprintf("query %s on %s: %v", e.Op, e.Controller, e.Err)
}

func (e *DeviceQueryError) Unwrap() error {
	return e.Err
}

// EventSourceError reports a failure of the hardware event source. It is
// fatal and terminates the Reconciler.
type EventSourceError struct {
	Err error
}

func (e *EventSourceError) Error() string {
	return fmt.Sprintf("event source: %v", e.Err)
}

func (e *EventSourceError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports invalid configuration detected at startup.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
