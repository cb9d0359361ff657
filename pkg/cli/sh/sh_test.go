package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l1"
)

func TestFormatEvent(t *testing.T) {
	testCases := []struct {
		evt  comm.Event
		text string
	}{
		{comm.Event{Type: comm.TypeData, Payload: []byte{3, 1}}, "DATA 03 01"},
		{comm.Event{Type: comm.TypeSys, Payload: []byte{comm.SysReady}}, "SYS READY"},
		{comm.Event{Type: comm.TypeSys, Payload: []byte{comm.SysStop}}, "SYS STOP"},
		{comm.Event{Type: comm.TypeSys, Payload: []byte{comm.SysVersion, '1', '.', '1', '.', '0'}}, "SYS VERSION 1.1.0"},
		{comm.Event{Type: comm.TypeSys, Payload: []byte{comm.SysAlive, 0x1c, 0xe8, 0, 120}}, "SYS ALIVE 7400mV 120mA"},
		{comm.Event{Type: comm.TypeSys}, "SYS ?"},
		{comm.Event{Type: comm.TypeDump, Payload: []byte{1, 0, 0, 0}}, "DUMP kind 1, 3 bytes"},
		{comm.Event{Type: 0x30, Payload: []byte{1}}, "30 01"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.text, FormatEvent(&tc.evt))
	}
}

func TestParseBytes(t *testing.T) {
	b, err := ParseBytes([]string{"1", "0x4f", "0b11", "255"})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0x4f, 3, 255}, b)

	b, err = ParseBytes([]string{"c10302"})
	require.NoError(t, err)
	require.Equal(t, []byte{0xc1, 0x03, 0x02}, b)

	b, err = ParseBytes(nil)
	require.NoError(t, err)
	require.Empty(t, b)

	for _, args := range [][]string{{"256"}, {"x"}, {"c1030"}, {"zz0102"}} {
		_, err = ParseBytes(args)
		require.Error(t, err, "%v", args)
	}
}

func TestFormatInfo(t *testing.T) {
	require.Equal(t, "train1 (train) 1.1.0", FormatInfo(l1.HubInfo{Name: "train1", Device: "train", Version: "1.1.0"}))
	require.Equal(t, "layout", FormatInfo(l1.HubInfo{Name: "layout"}))
}
