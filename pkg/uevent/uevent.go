// Package uevent provides a hotplug.EventSource backed by the kernel uevent
// netlink socket (NETLINK_KOBJECT_UEVENT).
package uevent

import (
	"sync"

	"github.com/zoobzio/hotplug"
)

const (
	// DefaultSubsystem restricts events to the DRM subsystem.
	DefaultSubsystem = "drm"

	// DefaultDevType is accepted when an event carries a DEVTYPE.
	DefaultDevType = "drm_minor"

	defaultBufferSize = 64 * 1024
)

// Source listens for kernel uevents and forwards those matching its
// subsystem filter.
type Source struct {
	subsystem string
	devType   string
	bufSize   int

	mu     sync.Mutex
	err    error
	cancel func()
	done   chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithSubsystem sets the subsystem filter. An empty string forwards every
// subsystem.
func WithSubsystem(subsystem string) Option {
	return func(s *Source) {
		s.subsystem = subsystem
	}
}

// WithDevType sets the DEVTYPE accepted for events that carry one. An empty
// string disables the check.
func WithDevType(devType string) Option {
	return func(s *Source) {
		s.devType = devType
	}
}

// WithBufferSize sets the receive buffer size for a single datagram.
func WithBufferSize(n int) Option {
	return func(s *Source) {
		s.bufSize = n
	}
}

// New creates a Source filtering on the drm subsystem.
func New(opts ...Option) *Source {
	s := &Source{
		subsystem: DefaultSubsystem,
		devType:   DefaultDevType,
		bufSize:   defaultBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept reports whether an event passes the subsystem and devtype filters.
func (s *Source) Accept(e hotplug.Event) bool {
	if s.subsystem != "" && e.Subsystem != s.subsystem {
		return false
	}
	if s.devType != "" {
		if dt, ok := e.Properties["DEVTYPE"]; ok && dt != s.devType {
			return false
		}
	}
	return true
}

// Err returns the error that closed the event channel, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the receive loop and releases the socket.
func (s *Source) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (s *Source) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
