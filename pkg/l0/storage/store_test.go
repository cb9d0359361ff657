package storage

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	m := NewMemory(8)
	require.Equal(t, 8, m.Len())
	require.Equal(t, uint32(0), m.Get(3))
	require.NoError(t, m.Set(3, 0x01020304))
	require.Equal(t, uint32(0x01020304), m.Get(3))
	require.Equal(t, []byte{1, 2, 3, 4}, m.cells[12:16])

	require.NoError(t, m.Set(0, uint32(0xffffffff)))
	require.Equal(t, int32(-1), Signed(m, 0))

	require.True(t, errors.Is(m.Set(8, 1), ErrAddress))
	require.True(t, errors.Is(m.Set(-1, 1), ErrAddress))
	require.Equal(t, uint32(0), m.Get(100))
}

func TestDefaults(t *testing.T) {
	m := NewMemory(4)
	require.NoError(t, Defaults(m, 3500, 40, 90))
	require.Equal(t, uint32(3500), m.Get(0))
	require.Equal(t, uint32(90), m.Get(2))
	require.Error(t, Defaults(m, 1, 2, 3, 4, 5))
}

func TestLevelDBReopen(t *testing.T) {
	dir, err := ioutil.TempDir("", "trainhub-storage")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "cells")

	s, err := OpenLevelDB(path, DefaultCells)
	require.NoError(t, err)
	require.NoError(t, s.Set(1, 40))
	require.NoError(t, s.Set(58, 300))
	require.True(t, errors.Is(s.Set(DefaultCells, 1), ErrAddress))
	require.NoError(t, s.Close())

	s, err = OpenLevelDB(path, DefaultCells)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, uint32(40), s.Get(1))
	require.Equal(t, uint32(300), s.Get(58))
	require.Equal(t, uint32(0), s.Get(2))
}

func TestOpen(t *testing.T) {
	s, err := Open("mem:")
	require.NoError(t, err)
	require.Equal(t, DefaultCells, s.Len())

	dir, err := ioutil.TempDir("", "trainhub-storage")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	s, err = Open("leveldb:" + dir)
	require.NoError(t, err)
	require.NoError(t, s.(*LevelDB).Close())

	_, err = Open("redis://localhost")
	require.True(t, errors.Is(err, ErrUnsupportedURL))
}
