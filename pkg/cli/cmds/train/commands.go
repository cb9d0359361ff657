// Package train provides shell commands for train hubs.
package train

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/brickrail/trainhub/pkg/cli/sh"
	"github.com/brickrail/trainhub/pkg/train"
)

// Tiers maps speed names to tiers.
var Tiers = map[string]byte{
	"fast":   train.SpeedFast,
	"slow":   train.SpeedSlow,
	"cruise": train.SpeedCruise,
}

// ColorNames maps marker color names to colors.
var ColorNames = map[string]byte{
	"yellow": train.ColorYellow,
	"blue":   train.ColorBlue,
	"green":  train.ColorGreen,
	"red":    train.ColorRed,
	"any":    train.ColorAny,
}

// RunArg encodes the argument of run.
func RunArg(tier byte, backwards bool) byte {
	if backwards {
		return 0x10 | tier
	}
	return tier
}

func parseColors(args []string) ([]byte, error) {
	colors := make([]byte, 0, len(args))
	for _, arg := range args {
		c, ok := ColorNames[arg]
		if !ok {
			return nil, fmt.Errorf("unknown color %q", arg)
		}
		colors = append(colors, c)
	}
	return colors, nil
}

func noArgs(name string) func(c *ishell.Context) {
	return sh.MustBeConnected(func(c *ishell.Context) {
		sh.Call(c, name)
	})
}

var (
	// RunCmd drives with a speed tier.
	RunCmd = ishell.Cmd{
		Name:    "train.run",
		Aliases: []string{"tr"},
		Help:    "fast|slow|cruise [back]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("speed required"))
				return
			}
			tier, ok := Tiers[c.Args[0]]
			if !ok {
				c.Err(fmt.Errorf("unknown speed %q", c.Args[0]))
				return
			}
			sh.Call(c, "run", RunArg(tier, len(c.Args) > 1 && c.Args[1] == "back"))
		}),
	}

	// StopCmd stops the train.
	StopCmd = ishell.Cmd{
		Name:    "train.stop",
		Aliases: []string{"ts"},
		Help:    "",
		Func:    noArgs("stop"),
	}

	// NewRouteCmd discards the route.
	NewRouteCmd = ishell.Cmd{
		Name: "train.route",
		Help: "",
		Func: noArgs("new_route"),
	}

	// LegCmd sets a leg of the route.
	LegCmd = ishell.Cmd{
		Name: "train.leg",
		Help: "INDEX MARKER... FLAGS, e.g. 0 0x43 0x13 0x01 2",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			data, err := sh.ParseBytes(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(data) < 3 {
				c.Err(fmt.Errorf("INDEX, MARKER and FLAGS required"))
				return
			}
			sh.Call(c, "set_route_leg", data...)
		}),
	}

	// AdvanceCmd moves to the next leg.
	AdvanceCmd = ishell.Cmd{
		Name:    "train.advance",
		Aliases: []string{"ta"},
		Help:    "",
		Func:    noArgs("advance_route"),
	}

	// SensorCmd passes the next marker without sensing it.
	SensorCmd = ishell.Cmd{
		Name: "train.marker",
		Help: "",
		Func: noArgs("advance_sensor"),
	}

	// IntentionCmd sets whether the train stops at the end of a leg.
	IntentionCmd = ishell.Cmd{
		Name: "train.intention",
		Help: "LEG stop|pass",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("LEG and intention required"))
				return
			}
			leg, err := sh.ParseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			var stop byte
			switch c.Args[1] {
			case "stop":
				stop = 1
			case "pass":
			default:
				c.Err(fmt.Errorf("unknown intention %q", c.Args[1]))
				return
			}
			sh.Call(c, "set_leg_intention", leg, stop)
		}),
	}

	// ColorsCmd sets the colors accepted as markers.
	ColorsCmd = ishell.Cmd{
		Name: "train.colors",
		Help: "COLOR...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			colors, err := parseColors(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Call(c, "set_valid_colors", colors...)
		}),
	}

	// DumpCmd requests the color log.
	DumpCmd = ishell.Cmd{
		Name: "train.dump",
		Help: "",
		Func: noArgs("dump_color_buffer"),
	}
)

func init() {
	sh.AddCmds(
		&RunCmd,
		&StopCmd,
		&NewRouteCmd,
		&LegCmd,
		&AdvanceCmd,
		&SensorCmd,
		&IntentionCmd,
		&ColorsCmd,
		&DumpCmd,
	)
}
