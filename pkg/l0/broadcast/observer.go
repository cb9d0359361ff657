package broadcast

import (
	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l0/comm"
)

// BeaconHandler receives the (id_lo, state) of beacon entries addressed
// to this hub.
type BeaconHandler interface {
	HandleBeacon(idLo, state byte) error
}

// HandleBeaconFunc is func form of BeaconHandler.
type HandleBeaconFunc func(idLo, state byte) error

// HandleBeacon implements BeaconHandler.
func (f HandleBeaconFunc) HandleBeacon(idLo, state byte) error {
	return f(idLo, state)
}

// Observer listens to beacons for entries matching its identity.
type Observer struct {
	Radio    Radio
	Identity byte
	Handler  BeaconHandler
}

// NewObserver creates an Observer for the hub named name.
func NewObserver(radio Radio, name string, handler BeaconHandler) *Observer {
	return &Observer{
		Radio:    radio,
		Identity: comm.IdentityID(name),
		Handler:  handler,
	}
}

// Drain processes all received beacons without blocking.
func (o *Observer) Drain() error {
	for {
		beacon, ok := o.Radio.Receive()
		if !ok {
			return nil
		}
		if len(beacon)%EntrySize != 0 {
			glog.Warningf("malformed beacon % x", beacon)
		}
		for n := 0; n+EntrySize <= len(beacon); n += EntrySize {
			if beacon[n] != o.Identity {
				continue
			}
			glog.V(2).Infof("beacon entry % x", beacon[n:n+EntrySize])
			if err := o.Handler.HandleBeacon(beacon[n+1], beacon[n+2]); err != nil {
				return err
			}
		}
	}
}
