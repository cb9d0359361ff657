package hub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

func TestRouterStore(t *testing.T) {
	store := storage.NewMemory(storage.DefaultCells)
	r := &Router{Registry: rpc.MustNewRegistry(), Store: store}
	testCases := []struct {
		payload []byte
		addr    int
		value   uint32
	}{
		{payload: []byte{1, 0}, addr: 1, value: 0},
		{payload: []byte{2, 0, 0x80}, addr: 2, value: 0x80},
		{payload: []byte{3, 0, 0x0d, 0xac}, addr: 3, value: 3500},
		{payload: []byte{4, 0, 0xff, 0xff, 0xff, 0xfe}, addr: 4, value: 0xfffffffe},
	}
	for _, tc := range testCases {
		require.NoError(t, r.HandleMessage(&comm.Message{Type: comm.TypeStore, Payload: tc.payload}))
		require.Equal(t, tc.value, store.Get(tc.addr))
	}
	require.Equal(t, int32(-2), storage.Signed(store, 4))

	for _, payload := range [][]byte{{1}, {1, 0, 1, 2, 3, 4, 5}} {
		err := r.HandleMessage(&comm.Message{Type: comm.TypeStore, Payload: payload})
		require.IsType(t, &comm.ProtocolError{}, err)
	}
}

func TestRouterSys(t *testing.T) {
	var stopped, ready int
	r := &Router{
		OnStop:  func() { stopped++ },
		OnReady: func() error { ready++; return nil },
	}
	require.NoError(t, r.HandleMessage(&comm.Message{Type: comm.TypeSys, Payload: []byte{comm.SysReady}}))
	require.NoError(t, r.HandleMessage(&comm.Message{Type: comm.TypeSys, Payload: []byte{comm.SysAlive}}))
	require.NoError(t, r.HandleMessage(&comm.Message{Type: comm.TypeSys, Payload: []byte{comm.SysStop}}))
	require.Equal(t, 1, stopped)
	require.Equal(t, 1, ready)
	require.Error(t, r.HandleMessage(&comm.Message{Type: comm.TypeSys}))
	require.Error(t, r.HandleMessage(&comm.Message{Type: comm.TypeRPC, Payload: []byte{1}}))
}
