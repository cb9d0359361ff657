// Package layout implements the layout controller device: switches and
// crossings driven by motor pulses on the hub ports.
package layout

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

// Device types.
const (
	DeviceSwitch   byte = 0
	DeviceCrossing byte = 1
)

// Switch positions.
const (
	SwitchLeft  byte = 0
	SwitchRight byte = 1
	SwitchNone  byte = 2
)

// Crossing positions.
const (
	CrossingUp   byte = 1
	CrossingDown byte = 2
)

// Commands. Commands below CommandSetPos address switches.
const (
	CommandSwitch byte = 0
	CommandSetPos byte = 8
)

// DataSwitchConfirm reports a switch finished moving: port, position.
const DataSwitchConfirm byte = 0

// Per port storage cells.
const (
	CellPulseDuty     = 0
	CellPulseDuration = 1
	CellPulsePolarity = 2

	cellBase  = 8
	portCells = 16
)

// MaxPorts is the number of ports of the largest hub.
const MaxPorts = 6

// LoopInterval is the scheduling slice of a layout hub.
const LoopInterval = 30 * time.Millisecond

// Cell returns the storage address of cell i of port.
func Cell(port byte, i int) int {
	return cellBase + int(port)*portCells + i
}

// DeviceType returns the type of the device addressed by command.
func DeviceType(command byte) byte {
	if command < CommandSetPos {
		return DeviceSwitch
	}
	return DeviceCrossing
}

// Device is a pulse driven layout element on one port.
type Device interface {
	Type() byte
	Execute(command, arg byte) error
	Update(delta time.Duration) error
}

// pulse drives an output for the duration configured in storage.
type pulse struct {
	output  hw.MotorSink
	store   storage.Store
	port    byte
	elapsed time.Duration
	active  bool
}

func (p *pulse) start(positive bool) error {
	dir := -1.0
	if positive {
		dir = 1
	}
	if p.store.Get(Cell(p.port, CellPulsePolarity)) == 1 {
		dir = -dir
	}
	p.elapsed, p.active = 0, true
	return p.output.SetDuty(float64(storage.Signed(p.store, Cell(p.port, CellPulseDuty))) * dir)
}

// update returns true when the pulse ends.
func (p *pulse) update(delta time.Duration) (bool, error) {
	if !p.active {
		return false, nil
	}
	p.elapsed += delta
	duration := time.Duration(p.store.Get(Cell(p.port, CellPulseDuration))) * time.Millisecond
	if p.elapsed <= duration {
		return false, nil
	}
	p.active = false
	return true, p.output.SetDuty(0)
}

// Switch moves a turnout and confirms the position once the pulse ends.
type Switch struct {
	Position byte

	pulse    pulse
	notifier comm.Notifier
}

// Type implements Device.
func (s *Switch) Type() byte {
	return DeviceSwitch
}

// Execute implements Device.
func (s *Switch) Execute(command, arg byte) error {
	if command != CommandSwitch {
		return fmt.Errorf("unknown switch command %d", command)
	}
	s.Position = arg
	return s.pulse.start(arg == SwitchRight)
}

// Update implements Device.
func (s *Switch) Update(delta time.Duration) error {
	done, err := s.pulse.update(delta)
	if err != nil || !done {
		return err
	}
	return s.notifier.EmitData([]byte{DataSwitchConfirm, s.pulse.port, s.Position})
}

// Crossing raises or lowers the barriers of a level crossing.
type Crossing struct {
	Position byte

	pulse pulse
}

// Type implements Device.
func (c *Crossing) Type() byte {
	return DeviceCrossing
}

// Execute implements Device.
func (c *Crossing) Execute(command, arg byte) error {
	if command != CommandSetPos {
		return fmt.Errorf("unknown crossing command %d", command)
	}
	c.Position = arg
	return c.pulse.start(arg == CrossingUp)
}

// Update implements Device.
func (c *Crossing) Update(delta time.Duration) error {
	_, err := c.pulse.update(delta)
	return err
}

// Controller is the layout device. Devices are created on first use.
type Controller struct {
	Outputs []hw.MotorSink

	store    storage.Store
	notifier comm.Notifier
	devices  [MaxPorts]Device
}

// New creates a Controller.
func New(hardware hw.Hardware, store storage.Store, notifier comm.Notifier) *Controller {
	return &Controller{
		Outputs:  hardware.Motors,
		store:    store,
		notifier: notifier,
	}
}

// Name implements Device.
func (c *Controller) Name() string {
	return "layout"
}

// Ops returns the operations exposed to the host.
func (c *Controller) Ops() []rpc.Op {
	return []rpc.Op{
		{Name: "device_execute", Func: c.deviceExecute},
	}
}

// Ready implements Device.
func (c *Controller) Ready() error {
	glog.Infof("layout ready, %d ports", len(c.Outputs))
	return nil
}

// Update implements Device.
func (c *Controller) Update(delta time.Duration) error {
	for _, dev := range c.devices {
		if dev == nil {
			continue
		}
		if err := dev.Update(delta); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops all outputs.
func (c *Controller) Shutdown() error {
	for _, out := range c.Outputs {
		if err := out.SetDuty(0); err != nil {
			return err
		}
	}
	return nil
}

// Device returns the device on port, nil if none.
func (c *Controller) Device(port byte) Device {
	if int(port) >= len(c.devices) {
		return nil
	}
	return c.devices[port]
}

// EnsureDevice returns the device of typ on port, replacing a device
// of another type.
func (c *Controller) EnsureDevice(port, typ byte) (Device, error) {
	if int(port) >= len(c.Outputs) || int(port) >= MaxPorts {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	if dev := c.devices[port]; dev != nil && dev.Type() == typ {
		return dev, nil
	}
	p := pulse{output: c.Outputs[port], store: c.store, port: port}
	var dev Device
	switch typ {
	case DeviceSwitch:
		dev = &Switch{Position: SwitchNone, pulse: p, notifier: c.notifier}
	case DeviceCrossing:
		dev = &Crossing{Position: CrossingUp, pulse: p}
	default:
		return nil, fmt.Errorf("unknown device type %d", typ)
	}
	glog.V(1).Infof("port %d: device type %d", port, typ)
	c.devices[port] = dev
	return dev, nil
}

func (c *Controller) deviceExecute(args rpc.Args) error {
	if len(args) < 3 {
		return fmt.Errorf("device_execute needs port, command and argument: % x", []byte(args))
	}
	dev, err := c.EnsureDevice(args[0], DeviceType(args[1]))
	if err != nil {
		return err
	}
	return dev.Execute(args[1], args[2])
}
