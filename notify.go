package hotplug

import (
	"context"

	"github.com/zoobzio/pipz"
)

// Notifier receives stable connector changes. The Reconciler does not
// retry failed notifications; wrap the notifier with pipeline options if
// the sink needs retries or timeouts.
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, c Change) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, c Change) error {
	return f(ctx, c)
}

// notifyID names the terminal stage of the notification pipeline.
var notifyID = pipz.NewIdentity("hotplug:notify", "Delivers a stable change to the notifier")

// newPipeline wraps a notifier in the configured pipeline options.
func newPipeline(n Notifier, opts []Option) pipz.Chainable[Change] {
	var pipeline = notifierEffect(n)
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

func notifierEffect(n Notifier) pipz.Chainable[Change] {
	return pipz.Effect(notifyID, func(ctx context.Context, c Change) error {
		return n.Notify(ctx, c)
	})
}

// Fanout returns a Notifier that delivers each change to every notifier in
// order. All notifiers are called; the first error is returned.
func Fanout(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, c Change) error {
		var first error
		for _, n := range notifiers {
			if err := n.Notify(ctx, c); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
