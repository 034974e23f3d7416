// Package devfs provides a hotplug.EventSource that watches a device
// directory such as /dev/dri with inotify. It is a fallback for systems
// where the uevent socket is unavailable, for example inside containers.
//
// The kernel does not touch /dev/dri/card* nodes when a connector is
// plugged or unplugged, so this source only sees controllers arriving and
// departing (plus permission changes on their nodes). Connector changes
// surface only when something else starts a cycle: Reconciler.Process in
// sync mode, or an event source that observes them, such as pkg/uevent.
package devfs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/zoobzio/hotplug"
)

// DefaultDir is the DRM device directory.
const DefaultDir = "/dev/dri"

// Source watches a device directory and emits events for device nodes
// whose name contains the match string.
type Source struct {
	dir   string
	match string

	mu  sync.Mutex
	err error
}

// Option configures a Source.
type Option func(*Source)

// WithMatch sets the substring a node name must contain. Default: "card".
func WithMatch(match string) Option {
	return func(s *Source) {
		s.match = match
	}
}

// New creates a Source for the given directory.
func New(dir string, opts ...Option) *Source {
	s := &Source{dir: dir, match: "card"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Err returns the error that closed the event channel, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Watch begins watching the directory and returns a channel of events.
// Creating a node yields an add, writes and attribute changes yield a
// change, and removal or rename yields a remove.
func (s *Source) Watch(ctx context.Context) (<-chan hotplug.Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", s.dir, err)
	}

	out := make(chan hotplug.Event)

	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case fe, ok := <-watcher.Events:
				if !ok {
					s.fail(fmt.Errorf("fsnotify events closed"))
					return
				}

				e, ok := s.translate(fe)
				if !ok {
					continue
				}

				select {
				case out <- e:
				case <-ctx.Done():
					return
				}

			case werr, ok := <-watcher.Errors:
				if !ok {
					s.fail(fmt.Errorf("fsnotify errors closed"))
					return
				}
				// Queue overflow loses events but the watch stays valid.
				if werr == fsnotify.ErrEventOverflow {
					select {
					case out <- hotplug.Event{Kind: hotplug.EventChange, Device: s.dir, Subsystem: "drm"}:
					case <-ctx.Done():
						return
					}
					continue
				}
				s.fail(fmt.Errorf("watch %s: %w", s.dir, werr))
				return
			}
		}
	}()

	return out, nil
}

// translate maps an fsnotify event to a hotplug event.
func (s *Source) translate(fe fsnotify.Event) (hotplug.Event, bool) {
	if s.match != "" && !strings.Contains(filepath.Base(fe.Name), s.match) {
		return hotplug.Event{}, false
	}

	var kind hotplug.EventKind
	switch {
	case fe.Has(fsnotify.Create):
		kind = hotplug.EventAdd
	case fe.Has(fsnotify.Remove), fe.Has(fsnotify.Rename):
		kind = hotplug.EventRemove
	case fe.Has(fsnotify.Write), fe.Has(fsnotify.Chmod):
		kind = hotplug.EventChange
	default:
		return hotplug.Event{}, false
	}

	return hotplug.Event{
		Kind:       kind,
		Device:     fe.Name,
		Subsystem:  "drm",
		Properties: map[string]string{"OP": fe.Op.String()},
	}, true
}

func (s *Source) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
