package hotplug

import "context"

// ChannelSource wraps an existing event channel as an EventSource.
// Useful for testing and for sources that already produce events, such as
// a udev monitor owned by another component.
type ChannelSource struct {
	ch        <-chan Event
	sync      bool
	subsystem string
}

// NewChannelSource creates a ChannelSource that forwards events from the
// given channel through an internal goroutine.
func NewChannelSource(ch <-chan Event) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// NewSyncChannelSource creates a ChannelSource that returns the source
// channel directly without an intermediate goroutine.
// Use with SyncMode() for deterministic testing.
func NewSyncChannelSource(ch <-chan Event) *ChannelSource {
	return &ChannelSource{ch: ch, sync: true}
}

// Subsystem drops forwarded events whose Subsystem is set and differs from
// name. Sync sources hand their channel over unchanged and ignore it.
// Must be called before Watch.
func (s *ChannelSource) Subsystem(name string) *ChannelSource {
	s.subsystem = name
	return s
}

func (s *ChannelSource) accept(e Event) bool {
	return s.subsystem == "" || e.Subsystem == "" || e.Subsystem == s.subsystem
}

// Watch returns the channel the Reconciler reads. The forwarding goroutine
// stops and closes it when ctx is done or the wrapped channel closes.
func (s *ChannelSource) Watch(ctx context.Context) (<-chan Event, error) {
	if s.sync {
		return s.ch, nil
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			var e Event
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.ch:
				if !ok {
					return
				}
				e = ev
			}
			if !s.accept(e) {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
