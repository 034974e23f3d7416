package hotplug

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ConnectorKey identifies one connector on one controller.
//
// The controller component is an xxhash64 of the controller identity
// (normally its device path), which keeps keys small and comparable. Two
// distinct controller paths hashing to the same value would be conflated;
// this is accepted as a known approximation.
type ConnectorKey struct {
	Controller uint64
	Connector  uint32
}

// NewConnectorKey builds the key for a connector id on the given controller.
// The result is deterministic for identical inputs and is stable across runs
// as long as the controller path is.
func NewConnectorKey(controller string, connector uint32) ConnectorKey {
	return ConnectorKey{
		Controller: xxhash.Sum64String(controller),
		Connector:  connector,
	}
}

// String renders the key as "<controller hash>:<connector id>".
func (k ConnectorKey) String() string {
	return fmt.Sprintf("%016x:%d", k.Controller, k.Connector)
}

// less orders keys by controller hash, then connector id.
func (k ConnectorKey) less(o ConnectorKey) bool {
	if k.Controller != o.Controller {
		return k.Controller < o.Controller
	}
	return k.Connector < o.Connector
}
