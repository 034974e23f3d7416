/*
Package hotplug reconciles display connector state across DRM controllers
and reports stable changes.

A Reconciler waits on a hardware EventSource (kernel uevents, /dev/dri
inotify, or a channel in tests). When an add or change event arrives it
re-queries every Controller, diffs the readings against its baseline and
passes the candidates through a DebounceFilter before handing them to a
Notifier.

# Basic Usage

	cards, err := drm.Discover("/dev/dri")
	if err != nil {
	    return err
	}

	r := hotplug.New(
	    uevent.New(),
	    hotplug.NewControllerSet(cards...),
	    hotplug.NotifierFunc(func(ctx context.Context, c hotplug.Change) error {
	        log.Printf("%s on %s is now %s", c.Connector, c.Controller, c.State)
	        return nil
	    }),
	    hotplug.WithTimeout(2*time.Second),
	)

	if err := r.Start(ctx); err != nil {
	    return err
	}
	<-r.Done()

# Debouncing

Connectors flicker while a cable is seated. Every non-connect transition
is held for a quiet period (200ms by default) and only reported if no
other candidate for the same connector arrives in the meantime. Transitions
to connected are reported immediately and cancel any pending candidate.

Initial changes, the first reading of a connector, bypass the filter:

	r.QuietPeriod(150 * time.Millisecond).
	    Override(hotplug.NewConnectorKey("/dev/dri/card1", 77), time.Second)

Under PromoteRevalidate (the default) a due candidate is checked against
a fresh snapshot before it is reported, so a disconnect that healed
without an event is never delivered.

# Observability

Lifecycle and transition events are emitted as capitan signals:

	capitan.Hook(hotplug.TransitionReported, func(ctx context.Context, e *capitan.Event) {
	    name, _ := hotplug.KeyConnector.From(e)
	    state, _ := hotplug.KeyState.From(e)
	    fmt.Println(name, state)
	})

pkg/logging bridges these signals to zerolog.

# Testing

Use SyncMode with a fake clock for deterministic tests:

	clock := clockz.NewFakeClock()
	ch := make(chan hotplug.Event, 8)
	r := hotplug.New(hotplug.NewSyncChannelSource(ch), set, notifier).
	    Clock(clock).
	    SyncMode()

	r.Start(ctx)
	ch <- hotplug.Event{Kind: hotplug.EventChange}
	r.Process(ctx)
	clock.Advance(200 * time.Millisecond)
	r.Process(ctx)
*/
package hotplug
