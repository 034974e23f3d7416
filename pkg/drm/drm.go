// Package drm provides a hotplug.Controller that queries connector state
// from a DRM device node with mode-setting ioctls.
package drm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zoobzio/hotplug"
)

// Kernel connection values reported by DRM_IOCTL_MODE_GETCONNECTOR.
const (
	connectionConnected    = 1
	connectionDisconnected = 2
	connectionUnknown      = 3
)

// connectorTypes follows the kernel's drm_connector_enum_list.
var connectorTypes = []string{
	"Unknown",
	"VGA",
	"DVI-I",
	"DVI-D",
	"DVI-A",
	"Composite",
	"SVIDEO",
	"LVDS",
	"Component",
	"DIN",
	"DP",
	"HDMI-A",
	"HDMI-B",
	"TV",
	"eDP",
	"Virtual",
	"DSI",
	"DPI",
	"Writeback",
	"SPI",
	"USB",
}

// ConnectorName returns the kernel style name of a connector, e.g.
// "HDMI-A-1".
func ConnectorName(connectorType, typeID uint32) string {
	name := "Unknown"
	if int(connectorType) < len(connectorTypes) {
		name = connectorTypes[connectorType]
	}
	return fmt.Sprintf("%s-%d", name, typeID)
}

// connectionState maps a kernel connection value to a hotplug.State.
func connectionState(connection uint32) hotplug.State {
	switch connection {
	case connectionConnected:
		return hotplug.StateConnected
	case connectionDisconnected:
		return hotplug.StateDisconnected
	default:
		return hotplug.StateUnknown
	}
}

// Card is an open DRM device node.
type Card struct {
	path string
	f    *os.File
}

// Open opens a DRM device node. Mode queries need no master rights, so a
// read-only handle is used when read-write access is denied.
func Open(path string) (*Card, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrPermission) {
		f, err = os.OpenFile(path, os.O_RDONLY, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Card{path: path, f: f}, nil
}

// Path returns the device path of the card.
func (c *Card) Path() string {
	return c.path
}

// Close releases the device handle.
func (c *Card) Close() error {
	return c.f.Close()
}

// Discover opens every device node in dir whose name contains "card".
// Nodes that cannot be opened are reported in the returned error alongside
// the cards that could.
func Discover(dir string) ([]hotplug.Controller, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "card*"))
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", dir, err)
	}
	sort.Strings(matches)

	var (
		cards []hotplug.Controller
		errs  []error
	)
	for _, path := range matches {
		if !strings.Contains(filepath.Base(path), "card") {
			continue
		}
		card, err := Open(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cards = append(cards, card)
	}

	if len(cards) == 0 && len(errs) == 0 {
		return nil, fmt.Errorf("discover %s: no card nodes found", dir)
	}
	return cards, errors.Join(errs...)
}
