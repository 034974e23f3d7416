package hotplug

import "context"

// EventKind is the action carried by a hardware event.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventAdd
	EventChange
	EventRemove
	EventBind
	EventUnbind
)

// String returns the uevent spelling of the kind.
func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "add"
	case EventChange:
		return "change"
	case EventRemove:
		return "remove"
	case EventBind:
		return "bind"
	case EventUnbind:
		return "unbind"
	default:
		return "unknown"
	}
}

// ParseEventKind maps a uevent ACTION value to an EventKind.
func ParseEventKind(action string) EventKind {
	switch action {
	case "add":
		return EventAdd
	case "change":
		return EventChange
	case "remove":
		return EventRemove
	case "bind":
		return EventBind
	case "unbind":
		return EventUnbind
	default:
		return EventUnknown
	}
}

// Event is a hardware change notification.
type Event struct {
	Kind EventKind

	// Device is an opaque reference to the device, usually its devpath.
	Device string

	// Subsystem is the kernel subsystem that raised the event.
	Subsystem string

	// Properties holds any remaining key/value pairs carried by the event.
	Properties map[string]string
}

// Triggers reports whether the event should wake the Reconciler. Only adds
// and changes do.
func (e Event) Triggers() bool {
	return e.Kind == EventAdd || e.Kind == EventChange
}

// EventSource observes hardware and emits events on a channel.
type EventSource interface {
	// Watch begins observing and returns a channel of events. The channel
	// is closed when the context is canceled or an unrecoverable error
	// occurs. Sources may implement `Err() error` to explain a closure and
	// io.Closer to release their handle.
	Watch(ctx context.Context) (<-chan Event, error)
}

// anyTriggers reports whether at least one event in the batch wakes the
// Reconciler.
func anyTriggers(events []Event) bool {
	for _, e := range events {
		if e.Triggers() {
			return true
		}
	}
	return false
}
