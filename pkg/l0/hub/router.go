package hub

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l0/broadcast"
	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

// Router dispatches accepted messages by type.
type Router struct {
	Registry *rpc.Registry
	Store    storage.Store
	// Coordinator handles broadcast commands, nil when not relaying.
	Coordinator *broadcast.Coordinator
	// OnReady is the ready transition requested by the host.
	OnReady func() error
	// OnStop requests the loop to stop.
	OnStop func()
}

// HandleMessage implements comm.MessageHandler.
func (r *Router) HandleMessage(msg *comm.Message) error {
	switch msg.Type {
	case comm.TypeSys:
		return r.handleSys(msg.Payload)
	case comm.TypeRPC:
		if len(msg.Payload) < 2 {
			return protocolError(msg.Type, "missing capability hash")
		}
		return r.Registry.Dispatch([2]byte{msg.Payload[0], msg.Payload[1]}, msg.Payload[2:])
	case comm.TypeStore:
		return r.handleStore(msg.Payload)
	case comm.TypeBroadcast:
		if r.Coordinator != nil {
			return r.Coordinator.HandleCommand(msg.Payload)
		}
	}
	return protocolError(msg.Type, "unsupported message type")
}

func (r *Router) handleSys(payload []byte) error {
	if len(payload) < 1 {
		return protocolError(comm.TypeSys, "missing system code")
	}
	switch payload[0] {
	case comm.SysStop:
		glog.Info("stop requested by host")
		if r.OnStop != nil {
			r.OnStop()
		}
	case comm.SysReady:
		if r.OnReady != nil {
			return r.OnReady()
		}
	default:
		glog.Warningf("ignore system code %d", payload[0])
	}
	return nil
}

func (r *Router) handleStore(payload []byte) error {
	if len(payload) < 2 || len(payload) > 2+storage.WordSize {
		return protocolError(comm.TypeStore, fmt.Sprintf("malformed store % x", payload))
	}
	var value uint32
	for _, b := range payload[2:] {
		value = value<<8 | uint32(b)
	}
	glog.V(1).Infof("store %d = %d", payload[0], value)
	if err := r.Store.Set(int(payload[0]), value); err != nil {
		return protocolError(comm.TypeStore, err.Error())
	}
	return nil
}

func protocolError(typ byte, reason string) error {
	return &comm.ProtocolError{Type: typ, Reason: reason}
}
