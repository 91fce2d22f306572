// Package keystore holds the GUID-to-32-byte-key mapping consumed by the
// AES decryptor. Writes are infrequent (configuration time); reads happen
// on every encrypted extraction, so the store favors a single-writer,
// many-reader discipline with snapshot reads over a sync.RWMutex,
// matching the single-writer/many-reader style the teacher's store
// package uses around its own index and freelist state.
package keystore

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/pakio/pakio/binreader"
)

// KeySize is the required length of every registered key.
const KeySize = 32

// Store maps a container GUID to its 32-byte AES-256 key.
type Store struct {
	mu   sync.RWMutex
	keys map[binreader.GUID][KeySize]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{keys: make(map[binreader.GUID][KeySize]byte)}
}

// Put validates key's length and registers it under guid, replacing any
// existing entry atomically under the write lock.
func (s *Store) Put(guid binreader.GUID, key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("keystore: key must be %d bytes, got %d", KeySize, len(key))
	}
	var fixed [KeySize]byte
	copy(fixed[:], key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[guid] = fixed
	return nil
}

// PutHex parses keyHex as hex and registers it, as Put would.
func (s *Store) PutHex(guid binreader.GUID, keyHex string) error {
	keyHex = strings.TrimPrefix(strings.TrimPrefix(keyHex, "0x"), "0X")
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("keystore: invalid hex key: %w", err)
	}
	return s.Put(guid, key)
}

// Get returns the key registered under guid, if any. The returned slice
// is a fresh copy; mutating it never affects the store.
func (s *Store) Get(guid binreader.GUID) ([]byte, bool) {
	s.mu.RLock()
	key, ok := s.keys[guid]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	out := make([]byte, KeySize)
	copy(out, key[:])
	return out, true
}

// BulkPut registers every (GUID, key) pair under a single write-lock
// acquisition, an optimization over repeated Put calls when importing a
// configuration file of many container keys.
func (s *Store) BulkPut(pairs map[binreader.GUID][]byte) error {
	staged := make(map[binreader.GUID][KeySize]byte, len(pairs))
	for guid, key := range pairs {
		if len(key) != KeySize {
			return fmt.Errorf("keystore: key for %s must be %d bytes, got %d", guid, KeySize, len(key))
		}
		var fixed [KeySize]byte
		copy(fixed[:], key)
		staged[guid] = fixed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for guid, key := range staged {
		s.keys[guid] = key
	}
	return nil
}

// Remove deletes the key registered under guid, if any.
func (s *Store) Remove(guid binreader.GUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, guid)
}

// Len reports the number of registered keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

