package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"
	"github.com/syndtr/goleveldb/leveldb"
	dbutil "github.com/syndtr/goleveldb/leveldb/util"
)

var keyPrefix = []byte("cell/")

// LevelDB is a write-through persistent Store. Cells are keyed by their
// byte offset and cached in memory for reads.
type LevelDB struct {
	ldb   *leveldb.DB
	cache *Memory
}

// OpenLevelDB opens or creates the database at path and loads n cells.
func OpenLevelDB(path string, n int) (*LevelDB, error) {
	glog.Infof("Opening LevelDB in %s", path)
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenLevelDB %s: %v", path, err)
	}
	s := &LevelDB{ldb: ldb, cache: NewMemory(n)}
	if err := s.load(); err != nil {
		ldb.Close()
		return nil, err
	}
	return s, nil
}

func (s *LevelDB) load() error {
	iter := s.ldb.NewIterator(dbutil.BytesPrefix(keyPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		key, val := iter.Key(), iter.Value()
		if len(key) != len(keyPrefix)+2 || len(val) != WordSize {
			glog.Warningf("ignore malformed cell %q", key)
			continue
		}
		offset := int(binary.BigEndian.Uint16(key[len(keyPrefix):]))
		if err := s.cache.Set(offset/WordSize, binary.BigEndian.Uint32(val)); err != nil {
			glog.Warningf("ignore cell at offset %d: %v", offset, err)
		}
	}
	return iter.Error()
}

func cellKey(addr int) []byte {
	key := make([]byte, len(keyPrefix)+2)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint16(key[len(keyPrefix):], uint16(addr*WordSize))
	return key
}

// Len implements Store.
func (s *LevelDB) Len() int {
	return s.cache.Len()
}

// Get implements Store.
func (s *LevelDB) Get(addr int) uint32 {
	return s.cache.Get(addr)
}

// Set implements Store.
func (s *LevelDB) Set(addr int, value uint32) error {
	if err := s.cache.Set(addr, value); err != nil {
		return err
	}
	var data [WordSize]byte
	binary.BigEndian.PutUint32(data[:], value)
	glog.V(2).Infof("put cell %d = %d", addr, value)
	if err := s.ldb.Put(cellKey(addr), data[:], nil); err != nil {
		return fmt.Errorf("storage.Set %d: %v", addr, err)
	}
	return nil
}

// Close closes the database.
func (s *LevelDB) Close() error {
	return s.ldb.Close()
}
