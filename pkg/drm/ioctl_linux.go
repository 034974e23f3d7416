package drm

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/zoobzio/hotplug"
)

// Request numbers are _IOWR('d', nr, size).
const (
	ioctlModeGetResources = 0xC04064A0
	ioctlModeGetConnector = 0xC05064A7
)

// modeCardRes mirrors struct drm_mode_card_res.
type modeCardRes struct {
	fbIDPtr         uint64
	crtcIDPtr       uint64
	connectorIDPtr  uint64
	encoderIDPtr    uint64
	countFbs        uint32
	countCrtcs      uint32
	countConnectors uint32
	countEncoders   uint32
	minWidth        uint32
	maxWidth        uint32
	minHeight       uint32
	maxHeight       uint32
}

// modeGetConnector mirrors struct drm_mode_get_connector.
type modeGetConnector struct {
	encodersPtr     uint64
	modesPtr        uint64
	propsPtr        uint64
	propValuesPtr   uint64
	countModes      uint32
	countProps      uint32
	countEncoders   uint32
	encoderID       uint32
	connectorID     uint32
	connectorType   uint32
	connectorTypeID uint32
	connection      uint32
	mmWidth         uint32
	mmHeight        uint32
	subpixel        uint32
	pad             uint32
}

// modeInfoSize is sizeof(struct drm_mode_modeinfo).
const modeInfoSize = 68

// resourceRetries bounds re-reads when the connector list changes between
// the count and fill calls (MST hubs add connectors at runtime).
const resourceRetries = 5

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		default:
			return errno
		}
	}
}

// Connectors lists the connectors the card currently enumerates.
func (c *Card) Connectors() ([]hotplug.Connector, error) {
	fd := c.f.Fd()

	var ids []uint32
	for attempt := 0; ; attempt++ {
		var res modeCardRes
		if err := ioctl(fd, ioctlModeGetResources, unsafe.Pointer(&res)); err != nil {
			return nil, fmt.Errorf("get resources: %w", err)
		}
		if res.countConnectors == 0 {
			return nil, nil
		}

		ids = make([]uint32, res.countConnectors)
		fill := modeCardRes{
			connectorIDPtr:  uint64(uintptr(unsafe.Pointer(&ids[0]))),
			countConnectors: res.countConnectors,
		}
		err := ioctl(fd, ioctlModeGetResources, unsafe.Pointer(&fill))
		runtime.KeepAlive(ids)
		if err != nil {
			return nil, fmt.Errorf("get resources: %w", err)
		}
		if fill.countConnectors <= res.countConnectors {
			ids = ids[:fill.countConnectors]
			break
		}
		if attempt == resourceRetries {
			return nil, errors.New("get resources: connector list kept changing")
		}
	}

	connectors := make([]hotplug.Connector, 0, len(ids))
	for _, id := range ids {
		conn, err := c.getConnector(id)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, hotplug.Connector{
			ID:   id,
			Name: ConnectorName(conn.connectorType, conn.connectorTypeID),
		})
	}
	return connectors, nil
}

// ConnectorState returns the cached connection state of one connector.
func (c *Card) ConnectorState(conn hotplug.Connector) (hotplug.State, error) {
	info, err := c.getConnector(conn.ID)
	if err != nil {
		return hotplug.StateUnknown, err
	}
	return connectionState(info.connection), nil
}

// getConnector reads a connector without forcing a probe: a zero mode count
// makes the kernel re-probe the output, so one mode slot is always offered.
func (c *Card) getConnector(id uint32) (modeGetConnector, error) {
	var modes [modeInfoSize]byte
	arg := modeGetConnector{
		connectorID: id,
		countModes:  1,
		modesPtr:    uint64(uintptr(unsafe.Pointer(&modes[0]))),
	}
	err := ioctl(c.f.Fd(), ioctlModeGetConnector, unsafe.Pointer(&arg))
	runtime.KeepAlive(&modes)
	if err != nil {
		return modeGetConnector{}, fmt.Errorf("get connector %d: %w", id, err)
	}
	return arg, nil
}
