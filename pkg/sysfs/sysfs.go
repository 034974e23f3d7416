// Package sysfs provides a hotplug.Controller that reads connector status
// from /sys/class/drm. It needs no device access and works where the DRM
// node cannot be opened.
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zoobzio/hotplug"
)

const (
	// DefaultRoot is the DRM class directory.
	DefaultRoot = "/sys/class/drm"

	// DefaultDevDir is prefixed to card names to form controller identities
	// that match the ioctl backend.
	DefaultDevDir = "/dev/dri"
)

var cardPattern = regexp.MustCompile(`^card[0-9]+$`)

// Controller reads the connectors of one card from sysfs.
type Controller struct {
	root   string
	card   string
	devDir string
}

// Option configures a Controller.
type Option func(*Controller)

// WithDevDir sets the directory used to build the controller identity.
func WithDevDir(dir string) Option {
	return func(c *Controller) {
		c.devDir = dir
	}
}

// New creates a Controller for the named card ("card0") under root.
func New(root, card string, opts ...Option) *Controller {
	c := &Controller{root: root, card: card, devDir: DefaultDevDir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the device path of the card, e.g. /dev/dri/card0.
func (c *Controller) Path() string {
	return filepath.Join(c.devDir, c.card)
}

// Connectors lists the card's connector directories. The connector id comes
// from the connector_id attribute; kernels without it get ids in name
// order starting at 1.
func (c *Controller) Connectors() ([]hotplug.Connector, error) {
	if _, err := os.Stat(filepath.Join(c.root, c.card)); err != nil {
		return nil, fmt.Errorf("card %s: %w", c.card, err)
	}

	prefix := c.card + "-"
	dirs, err := filepath.Glob(filepath.Join(c.root, prefix+"*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)

	connectors := make([]hotplug.Connector, 0, len(dirs))
	for i, dir := range dirs {
		name := strings.TrimPrefix(filepath.Base(dir), prefix)

		id := uint32(i + 1)
		raw, err := os.ReadFile(filepath.Join(dir, "connector_id"))
		switch {
		case err == nil:
			n, perr := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
			if perr != nil {
				return nil, fmt.Errorf("connector %s: bad connector_id: %w", name, perr)
			}
			id = uint32(n)
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("connector %s: %w", name, err)
		}

		connectors = append(connectors, hotplug.Connector{ID: id, Name: name})
	}
	return connectors, nil
}

// ConnectorState reads the status attribute of a connector.
func (c *Controller) ConnectorState(conn hotplug.Connector) (hotplug.State, error) {
	raw, err := os.ReadFile(filepath.Join(c.root, c.card+"-"+conn.Name, "status"))
	if err != nil {
		return hotplug.StateUnknown, err
	}
	return hotplug.ParseState(strings.TrimSpace(string(raw))), nil
}

// Close is a no-op; sysfs reads hold no handle.
func (c *Controller) Close() error {
	return nil
}

// Discover returns a Controller for every card under root.
func Discover(root string, opts ...Option) ([]hotplug.Controller, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}

	var cards []hotplug.Controller
	for _, e := range entries {
		if cardPattern.MatchString(e.Name()) {
			cards = append(cards, New(root, e.Name(), opts...))
		}
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("discover %s: no cards found", root)
	}
	return cards, nil
}
