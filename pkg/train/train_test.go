package train

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
)

type trainTestEnv struct {
	t        *testing.T
	notifier *testNotifier
	motor    *testMotor
	sensor   *testColorSensor
	train    *Train
	registry *rpc.Registry
}

func newTrainTestEnv(t *testing.T) *trainTestEnv {
	env := &trainTestEnv{
		t:        t,
		notifier: &testNotifier{},
		motor:    &testMotor{},
		sensor:   &testColorSensor{},
	}
	env.train = New(hw.Hardware{
		Motors: []hw.MotorSink{env.motor},
		Sensor: env.sensor,
	}, newTestStore(), env.notifier)
	env.registry = rpc.MustNewRegistry(env.train.Ops()...)
	return env
}

// invoke runs an operation the way the registry does, but returns its
// error.
func (e *trainTestEnv) invoke(name string, args ...byte) error {
	op, ok := e.registry.Lookup(comm.CapabilityHash(name))
	require.True(e.t, ok, name)
	if len(args) == 0 {
		args = nil
	}
	return op.Func(rpc.Args(args))
}

func (e *trainTestEnv) call(name string, args ...byte) {
	require.NoError(e.t, e.invoke(name, args...), name)
}

func (e *trainTestEnv) update(samples ...hw.HSV) {
	e.sensor.samples = append(e.sensor.samples, samples...)
	for range samples {
		require.NoError(e.t, e.train.Update(100*time.Millisecond))
	}
}

func TestTrainOps(t *testing.T) {
	env := newTrainTestEnv(t)
	require.Equal(t, []string{
		"advance_route",
		"advance_sensor",
		"dump_color_buffer",
		"new_route",
		"run",
		"set_leg_intention",
		"set_route_leg",
		"set_valid_colors",
		"stop",
	}, env.registry.Names())
}

func TestTrainSetState(t *testing.T) {
	env := newTrainTestEnv(t)
	tr := env.train
	tr.SetState(StateRun | SpeedCruise)
	require.Equal(t, 75.0, tr.Motor.Target)
	require.Equal(t, 1.0, tr.Motor.Facing)

	tr.SetState(StateRun | StateBackwards | SpeedSlow)
	require.Equal(t, 40.0, tr.Motor.Target)
	require.Equal(t, -1.0, tr.Motor.Facing)

	tr.Motor.Speed = -30
	tr.SetState(StateStop)
	require.Zero(t, tr.Motor.Speed)
	require.Zero(t, tr.Motor.Target)

	env.call("run", 0x10|SpeedFast)
	require.Equal(t, 100.0, tr.Motor.Target)
	require.Equal(t, -1.0, tr.Motor.Facing)
	env.call("stop")
	require.Zero(t, tr.Motor.Target)
}

func TestTrainUnexpectedMarker(t *testing.T) {
	env := newTrainTestEnv(t)
	env.call("set_route_leg", 0, Marker(SpeedCruise, KeyNone, ColorRed), Marker(SpeedSlow, KeyIn, ColorBlue), LegStop)
	env.call("set_route_leg", 1, Marker(SpeedCruise, KeyNone, ColorBlue), LegStop)
	env.call("set_valid_colors", ColorRed, ColorBlue, ColorGreen)
	env.call("run", SpeedCruise)

	env.update(track, red, red, track, green, track)
	leg := env.train.Route.Current()
	require.Equal(t, 0, leg.Index)
	require.False(t, leg.Complete())
	require.Equal(t, []byte{DataSensorAdvance, DataUnexpectedMarker}, env.notifier.codes())
	unexpected := env.notifier.data[1]
	require.Len(t, unexpected, 9)
	require.Equal(t, []byte{DataUnexpectedMarker, ColorBlue, ColorGreen}, unexpected[:3])
	require.Equal(t, []byte{0x1c, 0x20, 0x00, 130, 0, 0}, unexpected[3:])
}

func TestTrainRoute(t *testing.T) {
	env := newTrainTestEnv(t)
	tr := env.train
	env.call("new_route")
	env.call("set_route_leg", 0, Marker(SpeedFast, KeyNone, ColorRed), Marker(SpeedCruise, KeyNone, ColorBlue), 0)
	env.call("set_route_leg", 1, Marker(SpeedCruise, KeyNone, ColorBlue), Marker(SpeedSlow, KeyIn, ColorRed), LegStop)
	env.call("set_valid_colors", ColorRed, ColorBlue)

	// nothing is sensed while standing.
	env.update(red, track)
	require.Len(t, env.sensor.samples, 2)
	require.False(t, tr.Route.Current().Started)
	env.sensor.samples = nil

	env.call("run", SpeedCruise)
	env.update(track, red, track)
	require.Equal(t, 100.0, tr.Motor.Target)
	env.update(blue, track)
	require.Equal(t, 1, tr.Route.Index)
	require.Equal(t, 75.0, tr.Motor.Target)
	env.update(red, track)
	require.Nil(t, tr.Route)
	require.Zero(t, tr.Motor.Speed)
	require.Zero(t, env.motor.duty)
	require.Equal(t, [][]byte{
		{DataSensorAdvance, 0},
		{DataSensorAdvance, 1},
		{DataLegAdvance, 1},
		{DataSensorAdvance, 1},
		{DataRouteComplete, 1},
	}, env.notifier.data)

	require.Equal(t, ErrNoRoute, env.invoke("advance_route"))
	require.Equal(t, ErrNoRoute, env.invoke("advance_sensor"))
	require.Equal(t, ErrNoRoute, env.invoke("set_route_leg", 0, Marker(SpeedFast, KeyNone, ColorRed), 0))
	env.call("new_route")
	require.NotNil(t, tr.Route)
}

func TestTrainRouteWithoutStop(t *testing.T) {
	env := newTrainTestEnv(t)
	tr := env.train
	env.call("set_route_leg", 0, Marker(SpeedFast, KeyNone, ColorRed), Marker(SpeedFast, KeyNone, ColorBlue), 0)
	env.call("run", SpeedFast)
	env.call("advance_sensor")
	require.Equal(t, 100.0, tr.Motor.Target)

	// passing the last marker of a leg without a stop or a follow-up leg
	// stops the train.
	env.call("advance_sensor")
	require.Nil(t, tr.Route)
	require.Zero(t, tr.Motor.Target)
	require.Zero(t, tr.Motor.Speed)
	require.Equal(t, [][]byte{{DataSensorAdvance, 0}, {DataSensorAdvance, 1}}, env.notifier.data)
	require.Equal(t, ErrNoRoute, env.invoke("advance_sensor"))
}

func TestTrainSingleMarkerIntention(t *testing.T) {
	env := newTrainTestEnv(t)
	tr := env.train
	env.call("new_route")
	env.call("run", SpeedCruise)
	require.Equal(t, 75.0, tr.Motor.Target)
	env.call("set_leg_intention", 0, 1)
	require.True(t, tr.Route.Current().Complete())
	require.Zero(t, tr.Motor.Target)

	env.call("set_route_leg", 0, Marker(SpeedFast, KeyNone, ColorRed), LegStop)
	env.call("run", SpeedFast)
	env.call("set_leg_intention", 0, 1)
	require.Zero(t, tr.Motor.Target)
	require.Equal(t, ErrLegComplete, env.invoke("advance_sensor"))

	env.call("set_leg_intention", 0, 0)
	require.Equal(t, 100.0, tr.Motor.Target)
}

func TestTrainOpErrors(t *testing.T) {
	env := newTrainTestEnv(t)
	require.Error(t, env.invoke("set_leg_intention", 0))
	require.Error(t, env.invoke("set_leg_intention", 3, 1))
	require.Error(t, env.invoke("set_route_leg", 5, Marker(SpeedFast, KeyNone, ColorRed), 0))
	require.Equal(t, ErrLastLeg, env.invoke("advance_route"))
}

func TestTrainIntention(t *testing.T) {
	env := newTrainTestEnv(t)
	tr := env.train
	env.call("set_route_leg", 0, Marker(SpeedFast, KeyNone, ColorRed), Marker(SpeedFast, KeyEnter, ColorBlue), Marker(SpeedSlow, KeyIn, ColorRed), 0)
	env.call("set_route_leg", 1, Marker(SpeedCruise, KeyNone, ColorRed), LegStop)
	env.call("run", SpeedFast)
	env.call("advance_sensor")
	env.call("advance_sensor")
	require.True(t, tr.Route.Current().Entered)
	require.Equal(t, 100.0, tr.Motor.Target)

	env.call("set_leg_intention", 0, 1)
	require.Equal(t, 40.0, tr.Motor.Target)

	// beacons address leg intentions too.
	require.NoError(t, tr.HandleBeacon(0, 0))
	require.Equal(t, 100.0, tr.Motor.Target)
	require.NoError(t, tr.HandleBeacon(1, 0))
	require.False(t, tr.Route.Legs[1].IntentStop)
	require.NoError(t, tr.HandleBeacon(7, 1))
}

func TestTrainDumpColorBuffer(t *testing.T) {
	env := newTrainTestEnv(t)
	env.call("dump_color_buffer")
	dump := env.notifier.dumps[DumpColors]
	require.Len(t, dump, ColorBufferSize)
	require.Equal(t, []byte{0x0d, 0xac, 0, 0}, dump[ColorLogSize:])
}

func TestTrainWithoutSensor(t *testing.T) {
	n := &testNotifier{}
	tr := New(hw.Hardware{}, newTestStore(), n)
	require.Nil(t, tr.Sensor)
	registry := rpc.MustNewRegistry(tr.Ops()...)
	require.NoError(t, registry.Dispatch(comm.CapabilityHash("dump_color_buffer"), nil))
	require.Empty(t, n.dumps)
	require.NoError(t, tr.Update(time.Second))
	require.NoError(t, tr.Shutdown())
}
