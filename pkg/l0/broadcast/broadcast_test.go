package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brickrail/trainhub/pkg/l0/comm"
)

type testRadio struct {
	sent     [][]byte
	received [][]byte
}

func (r *testRadio) Broadcast(data []byte) error {
	r.sent = append(r.sent, data)
	return nil
}

func (r *testRadio) Receive() ([]byte, bool) {
	if len(r.received) == 0 {
		return nil, false
	}
	data := r.received[0]
	r.received = r.received[1:]
	return data, true
}

func TestRegistryEviction(t *testing.T) {
	var r Registry
	for id := uint16(1); id <= 9; id++ {
		r.Record(id, byte(id))
	}
	require.Equal(t, MaxPeers, r.Len())
	_, ok := r.State(1)
	require.False(t, ok)
	state, ok := r.State(9)
	require.True(t, ok)
	require.Equal(t, byte(9), state)

	beacon := r.Beacon()
	require.Len(t, beacon, MaxPeers*EntrySize)
	require.Equal(t, []byte{0, 2, 2}, beacon[:3])
}

func TestRegistryUpdate(t *testing.T) {
	var r Registry
	r.Record(0x0102, 1)
	r.Record(0x0304, 2)
	r.Record(0x0102, 3)
	require.Equal(t, 2, r.Len())
	require.Equal(t, []byte{3, 4, 2, 1, 2, 3}, r.Beacon())

	// refreshing a peer protects it from eviction.
	for id := uint16(10); id < 16; id++ {
		r.Record(id, 0)
	}
	r.Record(0x0304, 5)
	r.Record(0x1000, 0)
	_, ok := r.State(0x0102)
	require.False(t, ok)
	state, ok := r.State(0x0304)
	require.True(t, ok)
	require.Equal(t, byte(5), state)
}

func TestCoordinator(t *testing.T) {
	radio := &testRadio{}
	c := NewCoordinator(radio)
	require.NoError(t, c.HandleCommand([]byte{0x4f, 0x01, 0x02}))
	require.NoError(t, c.HandleCommand([]byte{0x10, 0x00, 0x01}))
	require.Equal(t, [][]byte{
		{0x4f, 0x01, 0x02},
		{0x4f, 0x01, 0x02, 0x10, 0x00, 0x01},
	}, radio.sent)

	err := c.HandleCommand([]byte{1, 2})
	require.Error(t, err)
	_, ok := err.(*comm.ProtocolError)
	require.True(t, ok)
}

func TestObserver(t *testing.T) {
	radio := &testRadio{}
	var got [][2]byte
	o := NewObserver(radio, "train1", HandleBeaconFunc(func(idLo, state byte) error {
		got = append(got, [2]byte{idLo, state})
		return nil
	}))
	require.Equal(t, byte(0x4f), o.Identity)

	radio.received = [][]byte{
		{0x10, 0x00, 0x01, 0x4f, 0x01, 0x02},
		{0x4f, 0x00, 0x00, 0x4f},
	}
	require.NoError(t, o.Drain())
	require.Equal(t, [][2]byte{{1, 2}, {0, 0}}, got)
	require.Empty(t, radio.received)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeOff, ModeRelay, ModeObserve} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, parsed)
	}
	_, err := ParseMode("mesh")
	require.Error(t, err)
}
