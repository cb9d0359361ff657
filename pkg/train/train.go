// Package train implements the train device: it follows the route
// assigned by the host by counting color markers and ramps the motors
// accordingly.
package train

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

// Train is the train device.
type Train struct {
	Motor  *Motor
	Sensor *Sensor
	Route  *Route

	store    storage.Store
	notifier comm.Notifier
}

// New creates a Train. The sensor is optional.
func New(hardware hw.Hardware, store storage.Store, notifier comm.Notifier) *Train {
	t := &Train{
		Motor:    NewMotor(hardware.Motors, store),
		store:    store,
		notifier: notifier,
	}
	if hardware.Sensor != nil {
		t.Sensor = NewSensor(hardware.Sensor, store, t.onMarkerExit)
	}
	t.Route = NewRoute(notifier)
	return t
}

// Name implements Device.
func (t *Train) Name() string {
	return "train"
}

// Configure writes the default configuration to storage.
func (t *Train) Configure() error {
	return storage.Defaults(t.store, DefaultConfig...)
}

// Ops returns the operations exposed to the host.
func (t *Train) Ops() []rpc.Op {
	return []rpc.Op{
		{Name: "advance_route", Func: t.advanceRoute},
		{Name: "dump_color_buffer", Func: t.dumpColorBuffer},
		{Name: "advance_sensor", Func: t.advanceSensor},
		{Name: "new_route", Func: t.newRoute},
		{Name: "run", Func: t.run},
		{Name: "set_leg_intention", Func: t.setLegIntention},
		{Name: "set_route_leg", Func: t.setRouteLeg},
		{Name: "set_valid_colors", Func: t.setValidColors},
		{Name: "stop", Func: t.stop},
	}
}

// Ready implements Device.
func (t *Train) Ready() error {
	glog.Infof("train ready, %d motors, sensor: %v", len(t.Motor.Outputs), t.Sensor != nil)
	return nil
}

// Update implements Device.
func (t *Train) Update(delta time.Duration) error {
	if t.Sensor != nil && t.Motor.Target != 0 && t.Route != nil && len(t.Route.Legs) > 1 {
		if err := t.Sensor.Update(); err != nil {
			glog.Errorf("sensor: %v", err)
		}
	}
	return t.Motor.Update(delta)
}

// Shutdown stops the motors.
func (t *Train) Shutdown() error {
	return t.Motor.Stop()
}

// HandleBeacon applies a peer state addressed to this train: the stop
// intention of a leg.
func (t *Train) HandleBeacon(leg, state byte) error {
	if err := t.setIntention(int(leg), state != 0); err != nil {
		glog.Warningf("beacon for leg %d: %v", leg, err)
	}
	return nil
}

// SetState applies a train state to the motor.
func (t *Train) SetState(state byte) {
	glog.V(1).Infof("train state %02x", state)
	if state&StateStop != 0 {
		t.Motor.SetSpeed(0)
		return
	}
	if state&StateBackwards != 0 {
		t.Motor.SetFacing(-1)
	} else {
		t.Motor.SetFacing(1)
	}
	if state&StateRun != 0 {
		t.Motor.SetTarget(float64(t.store.Get(SpeedCell(state & 0x0f))))
	}
}

func (t *Train) onMarkerExit(color byte) {
	if t.Route == nil {
		return
	}
	expected, matched, err := t.Route.AdvanceSensor(color)
	switch {
	case errors.Is(err, ErrLegComplete):
		glog.Warningf("marker %d after leg completion", color)
		return
	case err != nil && !errors.Is(err, ErrLastLeg):
		glog.Errorf("advance sensor: %v", err)
	}
	if !matched {
		glog.Warningf("unexpected marker %d, expected %d", color, expected)
		if t.Sensor != nil {
			t.reportUnexpected(expected, color)
			t.Sensor.LogMismatch(expected, color)
		}
		return
	}
	if t.Sensor != nil {
		t.Sensor.LogMarker(color)
	}
	if errors.Is(err, ErrLastLeg) {
		glog.Warning("route ends without a stop, stopping")
		t.SetState(StateStop)
	} else {
		t.SetState(t.Route.State())
	}
	if t.Route.Finished() {
		glog.Info("route finished")
		t.Route = nil
	}
}

func (t *Train) reportUnexpected(expected, color byte) {
	data := make([]byte, 9)
	data[0], data[1], data[2] = DataUnexpectedMarker, expected, color
	binary.BigEndian.PutUint16(data[3:], uint16(t.Sensor.InitialChroma))
	binary.BigEndian.PutUint16(data[5:], t.Sensor.InitialHue)
	binary.BigEndian.PutUint16(data[7:], uint16(t.Sensor.Samples))
	if err := t.notifier.EmitData(data); err != nil {
		glog.Errorf("emit unexpected marker: %v", err)
	}
}

func (t *Train) advanceRoute(rpc.Args) error {
	if t.Route == nil {
		return ErrNoRoute
	}
	if err := t.Route.Advance(); err != nil {
		return err
	}
	t.SetState(t.Route.State())
	return nil
}

// advanceSensor passes the next marker without sensing it, for hubs
// following another hub's sensor.
func (t *Train) advanceSensor(rpc.Args) error {
	if t.Route == nil {
		return ErrNoRoute
	}
	if t.Route.Current().Complete() {
		return ErrLegComplete
	}
	t.onMarkerExit(t.Route.Current().NextColor())
	return nil
}

// run drives with a fixed speed tier, the high nibble of the argument
// selects backwards.
func (t *Train) run(args rpc.Args) error {
	arg := args.Byte()
	state := StateRun | arg&0x0f
	if arg>>4 != 0 {
		state |= StateBackwards
	}
	t.SetState(state)
	return nil
}

func (t *Train) stop(rpc.Args) error {
	t.SetState(StateStop)
	return nil
}

func (t *Train) newRoute(rpc.Args) error {
	t.Route = NewRoute(t.notifier)
	return nil
}

func (t *Train) setRouteLeg(args rpc.Args) error {
	if t.Route == nil {
		return ErrNoRoute
	}
	return t.Route.SetLeg(args)
}

func (t *Train) setLegIntention(args rpc.Args) error {
	if len(args) < 2 {
		return errors.New("set_leg_intention needs leg index and intention")
	}
	return t.setIntention(int(args[0]), args[1] != 0)
}

func (t *Train) setIntention(leg int, stop bool) error {
	if t.Route == nil {
		return ErrNoRoute
	}
	if err := t.Route.SetIntention(leg, stop); err != nil {
		return err
	}
	if t.Route.Index == leg {
		t.SetState(t.Route.State())
	}
	return nil
}

func (t *Train) setValidColors(args rpc.Args) error {
	if t.Sensor == nil {
		return errors.New("no color sensor")
	}
	t.Sensor.SetValidColors(args)
	return nil
}

func (t *Train) dumpColorBuffer(rpc.Args) error {
	if t.Sensor == nil {
		return errors.New("no color sensor")
	}
	return t.notifier.Dump(DumpColors, t.Sensor.ColorBuffer())
}
