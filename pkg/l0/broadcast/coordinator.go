package broadcast

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l0/comm"
)

// Radio is the shared broadcast channel.
type Radio interface {
	// Broadcast sends a beacon to all listeners.
	Broadcast([]byte) error
	// Receive returns a received beacon without blocking.
	Receive() ([]byte, bool)
}

// Mode selects the role of a hub on the radio channel.
type Mode int

// Modes
const (
	ModeOff Mode = iota
	ModeRelay
	ModeObserve
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeRelay:
		return "relay"
	case ModeObserve:
		return "observe"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the name of a Mode.
func ParseMode(s string) (Mode, error) {
	for m := ModeOff; m <= ModeObserve; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return ModeOff, fmt.Errorf("unknown broadcast mode %q", s)
}

// Coordinator relays peer states received from the host.
type Coordinator struct {
	Radio    Radio
	Registry Registry
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(radio Radio) *Coordinator {
	return &Coordinator{Radio: radio}
}

// HandleCommand records the peer state in payload (id_hi, id_lo, state)
// and broadcasts the beacon.
func (c *Coordinator) HandleCommand(payload []byte) error {
	if len(payload) < EntrySize {
		return &comm.ProtocolError{
			Type:   comm.TypeBroadcast,
			Reason: fmt.Sprintf("broadcast command too short: % x", payload),
		}
	}
	id := uint16(payload[0])<<8 | uint16(payload[1])
	c.Registry.Record(id, payload[2])
	beacon := c.Registry.Beacon()
	glog.V(2).Infof("beacon % x", beacon)
	return c.Radio.Broadcast(beacon)
}
