package hub

import (
	"time"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

// Device is the logic run by a hub, e.g. a train or a layout controller.
type Device interface {
	Name() string
	// Ops returns the operations callable by the host.
	Ops() []rpc.Op
	// Ready is called once the host declared the hub ready.
	Ready() error
	// Update is called on every loop iteration after Ready.
	Update(delta time.Duration) error
	// Shutdown puts the hardware in a safe state.
	Shutdown() error
}

// Configurable is implemented by devices with default storage contents.
type Configurable interface {
	Configure() error
}

// DeviceFactory creates a Device wired to the hub.
type DeviceFactory func(hardware hw.Hardware, store storage.Store, notifier comm.Notifier) Device
