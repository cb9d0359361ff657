// Package layout provides shell commands for layout controller hubs.
package layout

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/brickrail/trainhub/pkg/cli/sh"
	"github.com/brickrail/trainhub/pkg/layout"
)

// Positions maps position names to commands and arguments.
var Positions = map[string][2]byte{
	"left":  {layout.CommandSwitch, layout.SwitchLeft},
	"right": {layout.CommandSwitch, layout.SwitchRight},
	"up":    {layout.CommandSetPos, layout.CrossingUp},
	"down":  {layout.CommandSetPos, layout.CrossingDown},
}

// ExecuteArgs encodes the arguments of device_execute.
func ExecuteArgs(port string, position string) ([]byte, error) {
	p, err := sh.ParseByte(port)
	if err != nil {
		return nil, err
	}
	if p >= layout.MaxPorts {
		return nil, fmt.Errorf("invalid port %d", p)
	}
	cmd, ok := Positions[position]
	if !ok {
		return nil, fmt.Errorf("unknown position %q", position)
	}
	return []byte{p, cmd[0], cmd[1]}, nil
}

var (
	// SetCmd moves a switch or a crossing.
	SetCmd = ishell.Cmd{
		Name:    "layout.set",
		Aliases: []string{"ls"},
		Help:    "PORT left|right|up|down",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("PORT and position required"))
				return
			}
			args, err := ExecuteArgs(c.Args[0], c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			sh.Call(c, "device_execute", args...)
		}),
	}

	// PulseCmd configures the pulse of a port.
	PulseCmd = ishell.Cmd{
		Name: "layout.pulse",
		Help: "PORT DUTY DURATION(ms) [inverted]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("PORT, DUTY and DURATION required"))
				return
			}
			values, err := sh.ParseBytes(c.Args[:2])
			if err != nil {
				c.Err(err)
				return
			}
			var duration int
			if _, err = fmt.Sscanf(c.Args[2], "%d", &duration); err != nil || duration <= 0 {
				c.Err(fmt.Errorf("invalid DURATION %q", c.Args[2]))
				return
			}
			var inverted uint32
			if len(c.Args) > 3 && c.Args[3] == "inverted" {
				inverted = 1
			}
			port := values[0]
			cells := []struct {
				addr  int
				value uint32
			}{
				{layout.Cell(port, layout.CellPulseDuty), uint32(values[1])},
				{layout.Cell(port, layout.CellPulseDuration), uint32(duration)},
				{layout.Cell(port, layout.CellPulsePolarity), inverted},
			}
			for _, cell := range cells {
				if sh.Store(c, byte(cell.addr), cell.value) != nil {
					return
				}
			}
		}),
	}
)

func init() {
	sh.AddCmds(&SetCmd, &PulseCmd)
}
