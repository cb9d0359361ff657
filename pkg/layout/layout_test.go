package layout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

type testOutput struct {
	duties []float64
}

func (o *testOutput) SetDuty(duty float64) error {
	o.duties = append(o.duties, duty)
	return nil
}

type testNotifier struct {
	data [][]byte
}

func (n *testNotifier) EmitData(data []byte) error {
	n.data = append(n.data, data)
	return nil
}

func (n *testNotifier) Dump(byte, []byte) error {
	return nil
}

type layoutTestEnv struct {
	t        *testing.T
	outputs  []*testOutput
	store    storage.Store
	notifier *testNotifier
	ctl      *Controller
	registry *rpc.Registry
}

func newLayoutTestEnv(t *testing.T) *layoutTestEnv {
	env := &layoutTestEnv{
		t:        t,
		outputs:  []*testOutput{{}, {}},
		store:    storage.NewMemory(storage.DefaultCells),
		notifier: &testNotifier{},
	}
	var hardware hw.Hardware
	for _, out := range env.outputs {
		hardware.Motors = append(hardware.Motors, out)
	}
	for port := byte(0); port < 2; port++ {
		require.NoError(t, env.store.Set(Cell(port, CellPulseDuty), 80))
		require.NoError(t, env.store.Set(Cell(port, CellPulseDuration), 600))
	}
	env.ctl = New(hardware, env.store, env.notifier)
	env.registry = rpc.MustNewRegistry(env.ctl.Ops()...)
	return env
}

func (e *layoutTestEnv) execute(port, command, arg byte) {
	require.NoError(e.t, e.registry.Dispatch(comm.CapabilityHash("device_execute"), []byte{port, command, arg}))
}

func (e *layoutTestEnv) update(d time.Duration) {
	require.NoError(e.t, e.ctl.Update(d))
}

func TestCell(t *testing.T) {
	require.Equal(t, 8, Cell(0, CellPulseDuty))
	require.Equal(t, 26, Cell(1, CellPulsePolarity))
	require.Equal(t, 90, Cell(5, CellPulsePolarity))
	require.True(t, Cell(MaxPorts-1, CellPulsePolarity) < storage.DefaultCells)
}

func TestSwitch(t *testing.T) {
	env := newLayoutTestEnv(t)
	env.execute(1, CommandSwitch, SwitchRight)
	require.Equal(t, []float64{80}, env.outputs[1].duties)
	sw, ok := env.ctl.Device(1).(*Switch)
	require.True(t, ok)
	require.Equal(t, SwitchRight, sw.Position)

	env.update(300 * time.Millisecond)
	env.update(300 * time.Millisecond)
	require.Empty(t, env.notifier.data)
	env.update(30 * time.Millisecond)
	require.Equal(t, []float64{80, 0}, env.outputs[1].duties)
	require.Equal(t, [][]byte{{DataSwitchConfirm, 1, SwitchRight}}, env.notifier.data)

	// confirmed only once.
	env.update(time.Second)
	require.Len(t, env.notifier.data, 1)
	require.Empty(t, env.outputs[0].duties)
}

func TestSwitchPolarity(t *testing.T) {
	env := newLayoutTestEnv(t)
	env.execute(0, CommandSwitch, SwitchLeft)
	require.NoError(t, env.store.Set(Cell(0, CellPulsePolarity), 1))
	env.execute(0, CommandSwitch, SwitchLeft)
	env.execute(0, CommandSwitch, SwitchRight)
	require.Equal(t, []float64{-80, 80, -80}, env.outputs[0].duties)
}

func TestCrossingReplacesSwitch(t *testing.T) {
	env := newLayoutTestEnv(t)
	env.execute(0, CommandSwitch, SwitchLeft)
	env.execute(0, CommandSetPos, CrossingDown)
	crossing, ok := env.ctl.Device(0).(*Crossing)
	require.True(t, ok)
	require.Equal(t, CrossingDown, crossing.Position)
	require.Equal(t, []float64{-80, -80}, env.outputs[0].duties)

	env.update(time.Second)
	require.Equal(t, []float64{-80, -80, 0}, env.outputs[0].duties)
	// the replaced switch never confirms.
	require.Empty(t, env.notifier.data)

	env.execute(0, CommandSetPos, CrossingUp)
	require.Equal(t, 80.0, env.outputs[0].duties[3])
	require.True(t, crossing == env.ctl.Device(0))
}

func TestDeviceExecuteErrors(t *testing.T) {
	env := newLayoutTestEnv(t)
	require.Error(t, env.ctl.deviceExecute(rpc.Args{0, CommandSwitch}))
	require.Error(t, env.ctl.deviceExecute(rpc.Args{2, CommandSwitch, SwitchLeft}))
	require.Error(t, env.ctl.deviceExecute(rpc.Args{0, 3, SwitchLeft}))
	require.Error(t, env.ctl.deviceExecute(rpc.Args{0, 9, CrossingUp}))
	require.Nil(t, env.ctl.Device(MaxPorts))
}

func TestShutdown(t *testing.T) {
	env := newLayoutTestEnv(t)
	require.NoError(t, env.ctl.Shutdown())
	require.Equal(t, []float64{0}, env.outputs[0].duties)
	require.Equal(t, []float64{0}, env.outputs[1].duties)
}
