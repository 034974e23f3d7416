//go:build !linux

package uevent

import (
	"context"
	"errors"

	"github.com/zoobzio/hotplug"
)

// ErrUnsupported is returned by Watch on platforms without uevent netlink.
var ErrUnsupported = errors.New("uevent: netlink uevents require linux")

// Watch always fails outside Linux.
func (s *Source) Watch(_ context.Context) (<-chan hotplug.Event, error) {
	return nil, ErrUnsupported
}
