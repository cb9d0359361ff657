// Package storage provides the addressable 32-bit cells shared by the
// host and the device logic.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
)

// WordSize is the encoded size of a cell.
const WordSize = 4

// DefaultCells is the number of addressable cells.
const DefaultCells = 128

var (
	// ErrAddress indicates an address outside of the store.
	ErrAddress = errors.New("storage address out of range")
	// ErrUnsupportedURL indicates the storage URL scheme is unknown.
	ErrUnsupportedURL = errors.New("unsupported storage url")
)

// Store is a fixed range of cells. Get is called on every control
// tick and must not block.
type Store interface {
	Len() int
	Get(addr int) uint32
	Set(addr int, value uint32) error
}

// Memory is a transient Store.
type Memory struct {
	cells []byte
}

// NewMemory creates a Memory with n cells.
func NewMemory(n int) *Memory {
	return &Memory{cells: make([]byte, n*WordSize)}
}

// Len implements Store.
func (m *Memory) Len() int {
	return len(m.cells) / WordSize
}

// Get implements Store. Out of range addresses read as 0.
func (m *Memory) Get(addr int) uint32 {
	if addr < 0 || addr >= m.Len() {
		return 0
	}
	return binary.BigEndian.Uint32(m.cells[addr*WordSize:])
}

// Set implements Store.
func (m *Memory) Set(addr int, value uint32) error {
	if addr < 0 || addr >= m.Len() {
		return fmt.Errorf("%w: %d", ErrAddress, addr)
	}
	binary.BigEndian.PutUint32(m.cells[addr*WordSize:], value)
	return nil
}

// Signed reads a cell as a signed value.
func Signed(s Store, addr int) int32 {
	return int32(s.Get(addr))
}

// Defaults writes values starting at address 0.
func Defaults(s Store, values ...uint32) error {
	for addr, val := range values {
		if err := s.Set(addr, val); err != nil {
			return err
		}
	}
	return nil
}

// Open creates a Store from URL:
//
//   mem:                 transient
//   leveldb:/var/lib/hub persistent
func Open(storeURL string) (Store, error) {
	u, err := url.Parse(storeURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "", "mem":
		return NewMemory(DefaultCells), nil
	case "leveldb":
		path := u.Opaque
		if path == "" {
			path = u.Path
		}
		return OpenLevelDB(path, DefaultCells)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, storeURL)
}
