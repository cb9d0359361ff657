package hub

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/brickrail/trainhub/pkg/framework"
	"github.com/brickrail/trainhub/pkg/l0/broadcast"
	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

type testLink struct {
	in  []byte
	out bytes.Buffer
}

func (l *testLink) Write(p []byte) (int, error) {
	return l.out.Write(p)
}

func (l *testLink) Poll(time.Duration) (byte, bool, error) {
	if len(l.in) == 0 {
		return 0, false, nil
	}
	b := l.in[0]
	l.in = l.in[1:]
	return b, true, nil
}

type testDevice struct {
	ready    int
	shutdown int
	updates  []time.Duration
	beacons  [][2]byte
	value    byte
}

func (d *testDevice) Name() string {
	return "test"
}

func (d *testDevice) Ops() []rpc.Op {
	return []rpc.Op{
		{Name: "set_value", Func: func(args rpc.Args) error {
			d.value = args.Byte()
			return nil
		}},
		{Name: "fail", Func: func(rpc.Args) error {
			return errors.New("failed")
		}},
	}
}

func (d *testDevice) Ready() error {
	d.ready++
	return nil
}

func (d *testDevice) Update(delta time.Duration) error {
	d.updates = append(d.updates, delta)
	return nil
}

func (d *testDevice) Shutdown() error {
	d.shutdown++
	return nil
}

func (d *testDevice) HandleBeacon(idLo, state byte) error {
	d.beacons = append(d.beacons, [2]byte{idLo, state})
	return nil
}

type testHardware struct {
	light   string
	pressed bool
}

func (h *testHardware) Voltage() int {
	return 7400
}

func (h *testHardware) Current() int {
	return 120
}

func (h *testHardware) SetColor(color string) {
	h.light = color
}

func (h *testHardware) Pressed() bool {
	return h.pressed
}

type testRadio struct {
	sent  [][]byte
	inbox [][]byte
}

func (r *testRadio) Broadcast(beacon []byte) error {
	r.sent = append(r.sent, beacon)
	return nil
}

func (r *testRadio) Receive() ([]byte, bool) {
	if len(r.inbox) == 0 {
		return nil, false
	}
	beacon := r.inbox[0]
	r.inbox = r.inbox[1:]
	return beacon, true
}

type hubTestEnv struct {
	t      *testing.T
	link   *testLink
	clock  *fx.ManualClock
	hw     *testHardware
	radio  *testRadio
	device *testDevice
	hub    *Hub
}

func newHubTestEnv(t *testing.T, mode broadcast.Mode) *hubTestEnv {
	env := &hubTestEnv{
		t:      t,
		link:   &testLink{},
		clock:  &fx.ManualClock{},
		hw:     &testHardware{},
		radio:  &testRadio{},
		device: &testDevice{},
	}
	opts := Options{
		Name:  "hub1",
		Link:  env.link,
		Clock: env.clock,
		Hardware: hw.Hardware{
			Battery: env.hw,
			Light:   env.hw,
			Button:  env.hw,
		},
		Mode: mode,
	}
	if mode != broadcast.ModeOff {
		opts.Radio = env.radio
	}
	h, err := New(opts, func(hw.Hardware, storage.Store, comm.Notifier) Device {
		return env.device
	})
	require.NoError(t, err)
	env.hub = h
	return env
}

func (e *hubTestEnv) step() error {
	e.clock.Advance(10 * time.Millisecond)
	return e.hub.Loop.Step(context.TODO())
}

// feed queues data and runs one iteration per byte.
func (e *hubTestEnv) feed(data ...byte) {
	e.link.in = append(e.link.in, data...)
	for range data {
		require.NoError(e.t, e.step())
	}
}

func (e *hubTestEnv) feedMsg(typ, seq byte, payload ...byte) {
	msg := &comm.Message{Type: typ, Payload: payload, Seq: seq}
	e.feed(msg.Bytes()...)
}

func (e *hubTestEnv) expectOut(data ...[]byte) {
	var expected []byte
	for _, d := range data {
		expected = append(expected, d...)
	}
	if len(expected) == 0 {
		require.Empty(e.t, e.link.out.Bytes())
	} else {
		require.Equal(e.t, expected, e.link.out.Bytes())
	}
	e.link.out.Reset()
}

func frameOf(typ, seq byte, payload ...byte) []byte {
	msg := &comm.Message{Type: typ, Payload: payload, Seq: seq}
	return msg.Bytes()
}

// start reports version and alive, both acknowledged.
func (e *hubTestEnv) start() {
	require.NoError(e.t, e.hub.Start())
	e.expectOut(frameOf(comm.TypeSys, 0, comm.SysVersion, '1', '.', '1', '.', '0'))
	e.feed(comm.AckFrame(true, 0)...)
	e.expectOut(frameOf(comm.TypeSys, 1, comm.SysAlive, 0x1c, 0xe8, 0, 120))
	e.feed(comm.AckFrame(true, 1)...)
	e.expectOut()
}

func TestHubReady(t *testing.T) {
	env := newHubTestEnv(t, broadcast.ModeOff)
	env.start()
	require.Empty(t, env.device.updates)
	require.False(t, env.hub.Ready())

	env.feed(4, 0x12, 0x01, 0x00, 0xec, 0x0a)
	env.expectOut(comm.AckFrame(true, 0), frameOf(comm.TypeSys, 2, comm.SysReady))
	require.True(t, env.hub.Ready())
	require.Equal(t, 1, env.device.ready)
	require.Equal(t, hw.LightGreen, env.hw.light)
	require.Len(t, env.device.updates, 1)

	require.NoError(t, env.step())
	require.NoError(t, env.step())
	require.Equal(t, []time.Duration{
		10 * time.Millisecond,
		10 * time.Millisecond,
		10 * time.Millisecond,
	}, env.device.updates)
}

func TestHubRPC(t *testing.T) {
	env := newHubTestEnv(t, broadcast.ModeOff)
	hash := comm.CapabilityHash("set_value")
	env.feedMsg(comm.TypeRPC, 0, hash[0], hash[1], 42)
	env.expectOut(comm.AckFrame(true, 0))
	require.Equal(t, byte(42), env.device.value)

	// failures of operations stay on the hub.
	hash = comm.CapabilityHash("fail")
	env.feedMsg(comm.TypeRPC, 1, hash[0], hash[1])
	env.expectOut(comm.AckFrame(true, 1))

	env.feedMsg(comm.TypeStore, 2, 7, 0, 0x01, 0x02)
	env.expectOut(comm.AckFrame(true, 2))
	require.Equal(t, uint32(0x0102), env.hub.Store.Get(7))
}

func TestHubProtocolViolation(t *testing.T) {
	testCases := []struct {
		name    string
		typ     byte
		payload []byte
	}{
		{name: "unknown type", typ: 0x30, payload: []byte{1}},
		{name: "unknown capability", typ: comm.TypeRPC, payload: []byte{0, 0}},
		{name: "broadcast while off", typ: comm.TypeBroadcast, payload: []byte{0, 1, 2}},
		{name: "store out of range", typ: comm.TypeStore, payload: []byte{200, 0, 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newHubTestEnv(t, broadcast.ModeOff)
			frame := frameOf(tc.typ, 0, tc.payload...)
			env.link.in = frame
			var err error
			for range frame {
				if err = env.step(); err != nil {
					break
				}
			}
			require.True(t, fx.IsFatal(err))
			var protoErr *comm.ProtocolError
			require.True(t, errors.As(err, &protoErr))
			require.Equal(t, tc.typ, protoErr.Type)
		})
	}
}

func TestHubAlive(t *testing.T) {
	env := newHubTestEnv(t, broadcast.ModeOff)
	env.start()
	env.clock.Advance(DefaultAliveInterval)
	require.NoError(t, env.step())
	env.expectOut(frameOf(comm.TypeSys, 2, comm.SysAlive, 0x1c, 0xe8, 0, 120))
	require.NoError(t, env.step())
	env.expectOut()
}

func TestHubLinkDead(t *testing.T) {
	env := newHubTestEnv(t, broadcast.ModeOff)
	require.NoError(t, env.hub.Start())
	env.feed(comm.AckFrame(true, 0)...)
	alive := frameOf(comm.TypeSys, 1, comm.SysAlive, 0x1c, 0xe8, 0, 120)
	env.expectOut(frameOf(comm.TypeSys, 0, comm.SysVersion, '1', '.', '1', '.', '0'), alive)
	for i := 0; i < comm.DefaultMaxAliveRetries; i++ {
		env.clock.Advance(time.Second)
		require.NoError(t, env.step())
		env.expectOut(alive)
	}
	env.clock.Advance(time.Second)
	err := env.step()
	require.True(t, fx.IsFatal(err))
	require.True(t, errors.Is(err, comm.ErrLinkDead))
}

func TestHubButton(t *testing.T) {
	env := newHubTestEnv(t, broadcast.ModeOff)
	require.NoError(t, env.step())
	require.False(t, env.hub.Ready())
	env.hw.pressed = true
	require.NoError(t, env.step())
	require.True(t, env.hub.Ready())
	env.expectOut(frameOf(comm.TypeSys, 0, comm.SysReady))
	require.NoError(t, env.step())
	require.Equal(t, 1, env.device.ready)
}

func TestHubStop(t *testing.T) {
	env := newHubTestEnv(t, broadcast.ModeOff)
	env.link.in = frameOf(comm.TypeSys, 0, comm.SysStop)
	require.NoError(t, env.hub.Run(context.TODO()))
	require.Equal(t, 1, env.device.shutdown)
	require.Empty(t, env.link.in)
}

func TestHubRelay(t *testing.T) {
	env := newHubTestEnv(t, broadcast.ModeRelay)
	env.feedMsg(comm.TypeBroadcast, 0, 0x01, 0x4f, 2)
	env.expectOut(comm.AckFrame(true, 0))
	require.Equal(t, [][]byte{{0x01, 0x4f, 2}}, env.radio.sent)
}

func TestHubObserve(t *testing.T) {
	env := newHubTestEnv(t, broadcast.ModeObserve)
	id := comm.IdentityID("hub1")
	env.radio.inbox = [][]byte{{id + 1, 0, 1, id, 3, 1}}
	require.NoError(t, env.step())
	require.Equal(t, [][2]byte{{3, 1}}, env.device.beacons)

	// no alive messages while observing.
	env.clock.Advance(time.Minute)
	require.NoError(t, env.step())
	env.expectOut()
}

func TestHubObserveRequiresHandler(t *testing.T) {
	_, err := New(Options{
		Name:  "hub1",
		Link:  &testLink{},
		Mode:  broadcast.ModeObserve,
		Radio: &testRadio{},
	}, func(hw.Hardware, storage.Store, comm.Notifier) Device {
		return struct{ Device }{&testDevice{}}
	})
	require.Error(t, err)
}
