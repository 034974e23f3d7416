package uevent

import (
	"bytes"
	"strings"

	"github.com/zoobzio/hotplug"
)

// libudevMagic prefixes messages re-broadcast by udevd. They carry a
// binary header and are not kernel uevents.
var libudevMagic = []byte("libudev\x00")

// Parse decodes one kernel uevent datagram:
//
//	ACTION@DEVPATH\0KEY=VALUE\0KEY=VALUE\0...
//
// It returns false for udevd messages and malformed datagrams.
func Parse(msg []byte) (hotplug.Event, bool) {
	if bytes.HasPrefix(msg, libudevMagic) {
		return hotplug.Event{}, false
	}

	parts := bytes.Split(bytes.TrimRight(msg, "\x00"), []byte{0})
	if len(parts) == 0 {
		return hotplug.Event{}, false
	}

	header := string(parts[0])
	at := strings.IndexByte(header, '@')
	if at <= 0 || at == len(header)-1 {
		return hotplug.Event{}, false
	}

	props := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(string(p), "=")
		if !ok || k == "" {
			continue
		}
		props[k] = v
	}

	action := props["ACTION"]
	if action == "" {
		action = header[:at]
	}
	devpath := props["DEVPATH"]
	if devpath == "" {
		devpath = header[at+1:]
	}

	device := devpath
	if name := props["DEVNAME"]; name != "" {
		if strings.HasPrefix(name, "/") {
			device = name
		} else {
			device = "/dev/" + name
		}
	}

	return hotplug.Event{
		Kind:       hotplug.ParseEventKind(action),
		Device:     device,
		Subsystem:  props["SUBSYSTEM"],
		Properties: props,
	}, true
}
