package sh

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l1"
	"github.com/brickrail/trainhub/pkg/l1/telemetry"
)

// Discoverer is implemented by telemetry sources which know the hubs.
type Discoverer interface {
	Discover(ctx context.Context) ([]l1.HubInfo, error)
}

// FormatInfo prints HubInfo into friendly string for display.
func FormatInfo(info l1.HubInfo) string {
	s := info.Name
	if info.Device != "" {
		s += " (" + info.Device + ")"
	}
	if info.Version != "" {
		s += " " + info.Version
	}
	return s
}

// DiscoverHubs lists the hubs announced on the telemetry broker.
func (s *Shell) DiscoverHubs(ctx context.Context) ([]l1.HubInfo, error) {
	src, err := telemetry.OpenSource(s.Config.TelemetryURL)
	if err != nil {
		return nil, err
	}
	d, ok := src.(Discoverer)
	if !ok {
		return nil, fmt.Errorf("%s can't discover hubs", s.Config.TelemetryURL)
	}
	return d.Discover(ctx)
}

var (
	// DiscoverCmd lists hubs announced on the telemetry broker.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverHubs(context.TODO())
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					infoList = []l1.HubInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No hubs found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a hub.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "LINK-URL",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			linkURL := s.Config.LinkURL
			if len(c.Args) > 0 {
				linkURL = c.Args[0]
			}
			if linkURL == "" {
				c.Err(fmt.Errorf("LINK-URL required"))
				return
			}
			if err := s.Connect(linkURL); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current hub.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// ReadyCmd tells the hub the host is ready.
	ReadyCmd = ishell.Cmd{
		Name: "ready",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			Do(c, func(ctx context.Context, h *comm.Host) error {
				return h.Sys(ctx, comm.SysReady)
			})
		}),
	}

	// StopCmd stops the hub program.
	StopCmd = ishell.Cmd{
		Name: "shutdown",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			Do(c, func(ctx context.Context, h *comm.Host) error {
				return h.Sys(ctx, comm.SysStop)
			})
		}),
	}

	// StoreCmd writes a storage cell.
	StoreCmd = ishell.Cmd{
		Name:    "store",
		Aliases: []string{"set"},
		Help:    "ADDR VALUE",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("ADDR and VALUE required"))
				return
			}
			addr, err := ParseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			value, err := strconv.ParseInt(c.Args[1], 0, 64)
			if err != nil || value < -1<<31 || value >= 1<<32 {
				c.Err(fmt.Errorf("invalid VALUE %q", c.Args[1]))
				return
			}
			Do(c, func(ctx context.Context, h *comm.Host) error {
				return h.Store(ctx, addr, uint32(value))
			})
		}),
	}

	// RPCCmd invokes an operation by name.
	RPCCmd = ishell.Cmd{
		Name:    "rpc",
		Aliases: []string{"call"},
		Help:    "NAME [ARG...]",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("NAME required"))
				return
			}
			args, err := ParseBytes(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			Call(c, c.Args[0], args...)
		}),
	}

	// BroadcastCmd relays a peer state through the hub's radio.
	BroadcastCmd = ishell.Cmd{
		Name:    "broadcast",
		Aliases: []string{"bc"},
		Help:    "ID STATE",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("ID and STATE required"))
				return
			}
			id, err := strconv.ParseUint(c.Args[0], 0, 16)
			if err != nil {
				c.Err(fmt.Errorf("invalid ID %q", c.Args[0]))
				return
			}
			state, err := ParseByte(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			Do(c, func(ctx context.Context, h *comm.Host) error {
				return h.Broadcast(ctx, uint16(id), state)
			})
		}),
	}
)
